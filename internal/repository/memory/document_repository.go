package memory

import (
	"context"
	"strings"
	"time"

	"docuchat-be/internal/entity"
	"docuchat-be/internal/repository/contract"
	"docuchat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type documentRepository struct {
	store *Store
}

func NewDocumentRepository(store *Store) contract.DocumentRepository {
	return &documentRepository{store: store}
}

func cloneDocument(d entity.Document) entity.Document {
	if d.Metadata != nil {
		meta := make(map[string]interface{}, len(d.Metadata))
		for k, v := range d.Metadata {
			meta[k] = v
		}
		d.Metadata = meta
	}
	return d
}

func (r *documentRepository) Create(_ context.Context, doc *entity.Document) error {
	if doc.Id == uuid.Nil {
		doc.Id = uuid.New()
	}
	now := time.Now()
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = now
	}
	doc.UpdatedAt = now
	if doc.Status == "" {
		doc.Status = entity.DocumentStatusPending
	}
	r.store.documents.put(doc.Id.String(), cloneDocument(*doc))
	return nil
}

func (r *documentRepository) UpdateIfStatus(_ context.Context, doc *entity.Document, expected entity.DocumentStatus) (bool, error) {
	changed := r.store.documents.update(doc.Id.String(), func(d *entity.Document) bool {
		if d.Status != expected {
			return false
		}
		d.Status = doc.Status
		d.ChunkCount = doc.ChunkCount
		d.TotalPages = doc.TotalPages
		d.CollectionId = doc.CollectionId
		d.Metadata = cloneDocument(*doc).Metadata
		d.UpdatedAt = time.Now()
		return true
	})
	if changed {
		doc.UpdatedAt = time.Now()
	}
	return changed, nil
}

func (r *documentRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.store.documents.delete(id.String())
	return nil
}

func (r *documentRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	docs, err := r.FindAll(ctx, specs...)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

func (r *documentRepository) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	rows, err := query(r.store.documents.all(), specs, matchDocument, lessDocument)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Document, len(rows))
	for i := range rows {
		d := cloneDocument(rows[i])
		out[i] = &d
	}
	return out, nil
}

func (r *documentRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	docs, err := r.FindAll(ctx, specs...)
	return int64(len(docs)), err
}

func (r *documentRepository) TransitionStatus(_ context.Context, id uuid.UUID, from, to entity.DocumentStatus) (bool, error) {
	changed := r.store.documents.update(id.String(), func(d *entity.Document) bool {
		if d.Status != from {
			return false
		}
		d.Status = to
		d.UpdatedAt = time.Now()
		return true
	})
	return changed, nil
}

func matchDocument(d entity.Document, spec specification.Specification) (bool, error) {
	switch s := spec.(type) {
	case specification.ByID:
		return d.Id == s.ID, nil
	case specification.UserOwnedBy:
		return d.UserId == s.UserID, nil
	case specification.ByDocumentStatus:
		return d.Status == s.Status, nil
	default:
		return false, unsupported(spec)
	}
}

func lessDocument(a, b entity.Document, field string) bool {
	switch field {
	case "updated_at":
		return a.UpdatedAt.Before(b.UpdatedAt)
	case "original_filename", "filename":
		return strings.ToLower(a.OriginalFilename) < strings.ToLower(b.OriginalFilename)
	default:
		return a.UploadedAt.Before(b.UploadedAt)
	}
}
