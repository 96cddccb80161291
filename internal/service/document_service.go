package service

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"slices"
	"strings"

	"docuchat-be/internal/dto"
	"docuchat-be/internal/entity"
	"docuchat-be/internal/pkg/logger"
	"docuchat-be/internal/repository/specification"
	"docuchat-be/internal/repository/unitofwork"
	"docuchat-be/pkg/staging"
	"docuchat-be/pkg/vectorstore"

	"github.com/google/uuid"
)

type IDocumentService interface {
	Upload(ctx context.Context, userId uuid.UUID, file *multipart.FileHeader) (*dto.UploadDocumentResponse, error)
	List(ctx context.Context, userId uuid.UUID) ([]*dto.DocumentListItem, error)
	Get(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.DocumentResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
}

// UploadPolicy bounds what the upload endpoint accepts.
type UploadPolicy struct {
	AllowedExtensions []string
	MaxFileSize       int64
}

type documentService struct {
	uowFactory unitofwork.RepositoryFactory
	stager     staging.Stager
	index      vectorstore.Index
	publisher  IPublisherService
	policy     UploadPolicy
	logger     logger.ILogger
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	stager staging.Stager,
	index vectorstore.Index,
	publisher IPublisherService,
	policy UploadPolicy,
	log logger.ILogger,
) IDocumentService {
	return &documentService{
		uowFactory: uowFactory,
		stager:     stager,
		index:      index,
		publisher:  publisher,
		policy:     policy,
		logger:     log,
	}
}

func (s *documentService) validate(name string, size int64) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if !slices.Contains(s.policy.AllowedExtensions, ext) {
		return "", validationError(fmt.Sprintf("Unsupported file type. Allowed: %s", strings.Join(s.policy.AllowedExtensions, ", ")))
	}
	if size > s.policy.MaxFileSize {
		return "", validationError(fmt.Sprintf("File too large. Max size is %d bytes.", s.policy.MaxFileSize))
	}
	return ext, nil
}

func (s *documentService) Upload(ctx context.Context, userId uuid.UUID, file *multipart.FileHeader) (*dto.UploadDocumentResponse, error) {
	name := filepath.Base(file.Filename)
	ext, err := s.validate(name, file.Size)
	if err != nil {
		return nil, err
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	stagedPath, size, err := s.stager.Save(ctx, src, name)
	if err != nil {
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	if size > s.policy.MaxFileSize {
		_ = s.stager.Remove(stagedPath)
		return nil, validationError(fmt.Sprintf("File too large. Max size is %d bytes.", s.policy.MaxFileSize))
	}

	doc := &entity.Document{
		Id:               uuid.New(),
		UserId:           userId,
		Filename:         name,
		OriginalFilename: name,
		FileSize:         size,
		FileType:         ext,
		Status:           entity.DocumentStatusPending,
		Metadata:         map[string]interface{}{},
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.DocumentRepository().Create(ctx, doc); err != nil {
		_ = s.stager.Remove(stagedPath)
		return nil, err
	}

	err = s.publisher.PublishIngest(ctx, dto.IngestDocumentMessage{DocumentId: doc.Id, StagedPath: stagedPath})
	if err != nil {
		s.logger.Error(logger.ModuleIngest, "Failed to queue document", map[string]interface{}{
			"document_id": doc.Id.String(),
			"error":       err,
		})
		doc.Status = entity.DocumentStatusFailed
		doc.Metadata[entity.MetadataProcessingError] = "failed to queue document for processing"
		_, _ = uow.DocumentRepository().UpdateIfStatus(context.WithoutCancel(ctx), doc, entity.DocumentStatusPending)
		_ = s.stager.Remove(stagedPath)
		return nil, err
	}

	s.logger.Info(logger.ModuleIngest, "Document uploaded", map[string]interface{}{
		"document_id": doc.Id.String(),
		"user_id":     userId.String(),
		"size":        size,
	})

	return &dto.UploadDocumentResponse{
		Id:       doc.Id,
		Filename: doc.Filename,
		Status:   dto.UploadStatusProcessingStarted,
	}, nil
}

func (s *documentService) List(ctx context.Context, userId uuid.UUID) ([]*dto.DocumentListItem, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	docs, err := uow.DocumentRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "upload_date", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.DocumentListItem, 0, len(docs))
	for _, d := range docs {
		result = append(result, &dto.DocumentListItem{
			Id:         d.Id,
			Filename:   d.Filename,
			UploadDate: d.UploadedAt,
			Status:     string(d.Status),
			ChunkCount: d.ChunkCount,
			FileSize:   d.FileSize,
		})
	}
	return result, nil
}

func (s *documentService) findOwned(ctx context.Context, uow unitofwork.UnitOfWork, userId, id uuid.UUID) (*entity.Document, error) {
	doc, err := uow.DocumentRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

func (s *documentService) Get(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.DocumentResponse, error) {
	doc, err := s.findOwned(ctx, s.uowFactory.NewUnitOfWork(ctx), userId, id)
	if err != nil {
		return nil, err
	}

	metadata := doc.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return &dto.DocumentResponse{
		Id:               doc.Id,
		Filename:         doc.Filename,
		OriginalFilename: doc.OriginalFilename,
		UploadDate:       doc.UploadedAt,
		Status:           string(doc.Status),
		ChunkCount:       doc.ChunkCount,
		FileSize:         doc.FileSize,
		FileType:         doc.FileType,
		TotalPages:       doc.TotalPages,
		CollectionId:     doc.CollectionId,
		Metadata:         metadata,
		Error:            doc.ProcessingError(),
	}, nil
}

// Delete removes the document's vectors before the record so a failed index call
// leaves the document visible and retryable.
func (s *documentService) Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	doc, err := s.findOwned(ctx, uow, userId, id)
	if err != nil {
		return err
	}

	if err := s.index.DeleteByDocument(ctx, doc.Id.String()); err != nil {
		return fmt.Errorf("%w: %v", ErrVectorIndexUnavailable, err)
	}
	if err := uow.DocumentRepository().Delete(ctx, doc.Id); err != nil {
		return err
	}

	s.logger.Info(logger.ModuleIngest, "Document deleted", map[string]interface{}{
		"document_id": doc.Id.String(),
		"user_id":     userId.String(),
	})
	return nil
}
