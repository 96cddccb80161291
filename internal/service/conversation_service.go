package service

import (
	"context"
	"fmt"
	"strings"

	"docuchat-be/internal/dto"
	"docuchat-be/internal/entity"
	"docuchat-be/internal/pkg/logger"
	"docuchat-be/internal/repository/specification"
	"docuchat-be/internal/repository/unitofwork"
	"docuchat-be/pkg/sharetoken"

	"github.com/google/uuid"
)

const (
	ExportFormatMarkdown = "md"
	ExportFormatText     = "txt"

	// SharedConversationPath is the public route a share token is appended to.
	SharedConversationPath = "/api/conversations/shared/"
)

type IConversationService interface {
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateConversationRequest) (*dto.ConversationResponse, error)
	List(ctx context.Context, userId uuid.UUID, q string) ([]*dto.ConversationResponse, error)
	Get(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ConversationDetailResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
	ListMessages(ctx context.Context, userId uuid.UUID, id uuid.UUID) ([]dto.MessageResponse, error)
	SendMessage(ctx context.Context, userId uuid.UUID, id uuid.UUID, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error)
	Export(ctx context.Context, userId uuid.UUID, id uuid.UUID, format string) (*dto.ConversationExport, error)
	Share(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShareConversationResponse, error)
	GetShared(ctx context.Context, token string) (*dto.ConversationDetailResponse, error)
}

type conversationService struct {
	uowFactory   unitofwork.RepositoryFactory
	queryService IQueryService
	signer       *sharetoken.Signer
	logger       logger.ILogger
}

func NewConversationService(
	uowFactory unitofwork.RepositoryFactory,
	queryService IQueryService,
	signer *sharetoken.Signer,
	log logger.ILogger,
) IConversationService {
	return &conversationService{
		uowFactory:   uowFactory,
		queryService: queryService,
		signer:       signer,
		logger:       log,
	}
}

func toConversationResponse(c *entity.Conversation) *dto.ConversationResponse {
	return &dto.ConversationResponse{
		Id:        c.Id,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toMessageResponses(messages []*entity.Message) []dto.MessageResponse {
	out := make([]dto.MessageResponse, 0, len(messages))
	for _, m := range messages {
		sources := m.Sources
		if sources == nil {
			sources = []entity.MessageSource{}
		}
		out = append(out, dto.MessageResponse{
			Id:        m.Id,
			Role:      string(m.Role),
			Content:   m.Content,
			Sources:   sources,
			Timestamp: m.Timestamp,
		})
	}
	return out
}

func (s *conversationService) findOwned(ctx context.Context, uow unitofwork.UnitOfWork, userId, id uuid.UUID) (*entity.Conversation, error) {
	conv, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

func (s *conversationService) messages(ctx context.Context, uow unitofwork.UnitOfWork, conversationId uuid.UUID) ([]*entity.Message, error) {
	return uow.MessageRepository().FindAll(ctx,
		specification.ByConversation{ConversationID: conversationId},
		specification.OrderBy{Field: "timestamp"},
	)
}

func (s *conversationService) detail(ctx context.Context, uow unitofwork.UnitOfWork, conv *entity.Conversation) (*dto.ConversationDetailResponse, error) {
	msgs, err := s.messages(ctx, uow, conv.Id)
	if err != nil {
		return nil, err
	}
	return &dto.ConversationDetailResponse{
		Id:        conv.Id,
		Title:     conv.Title,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
		Messages:  toMessageResponses(msgs),
	}, nil
}

func (s *conversationService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateConversationRequest) (*dto.ConversationResponse, error) {
	conv := &entity.Conversation{
		Id:     uuid.New(),
		UserId: userId,
		Title:  req.Title,
	}
	if err := s.uowFactory.NewUnitOfWork(ctx).ConversationRepository().Create(ctx, conv); err != nil {
		return nil, err
	}
	return toConversationResponse(conv), nil
}

func (s *conversationService) List(ctx context.Context, userId uuid.UUID, q string) ([]*dto.ConversationResponse, error) {
	specs := []specification.Specification{
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "updated_at", Desc: true},
	}
	if q = strings.TrimSpace(q); q != "" {
		specs = append(specs, specification.TitleContains{Query: q})
	}

	convs, err := s.uowFactory.NewUnitOfWork(ctx).ConversationRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.ConversationResponse, 0, len(convs))
	for _, c := range convs {
		out = append(out, toConversationResponse(c))
	}
	return out, nil
}

func (s *conversationService) Get(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ConversationDetailResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	conv, err := s.findOwned(ctx, uow, userId, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, uow, conv)
}

func (s *conversationService) Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.findOwned(ctx, uow, userId, id); err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.MessageRepository().DeleteByConversationId(ctx, id); err != nil {
		return err
	}
	if err := uow.ConversationRepository().Delete(ctx, id); err != nil {
		return err
	}
	return uow.Commit()
}

func (s *conversationService) ListMessages(ctx context.Context, userId uuid.UUID, id uuid.UUID) ([]dto.MessageResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.findOwned(ctx, uow, userId, id); err != nil {
		return nil, err
	}
	msgs, err := s.messages(ctx, uow, id)
	if err != nil {
		return nil, err
	}
	return toMessageResponses(msgs), nil
}

func (s *conversationService) SendMessage(ctx context.Context, userId uuid.UUID, id uuid.UUID, req *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	if _, err := s.findOwned(ctx, s.uowFactory.NewUnitOfWork(ctx), userId, id); err != nil {
		return nil, err
	}

	res, err := s.queryService.Query(ctx, userId, &dto.QueryRequest{
		Question:       req.Question,
		DocumentIds:    req.DocumentIds,
		ConversationId: &id,
	})
	if err != nil {
		return nil, err
	}
	return &dto.SendMessageResponse{
		Answer:         res.Answer,
		Sources:        res.Sources,
		ConversationId: id,
	}, nil
}

func (s *conversationService) Export(ctx context.Context, userId uuid.UUID, id uuid.UUID, format string) (*dto.ConversationExport, error) {
	if format == "" {
		format = ExportFormatMarkdown
	}
	if format != ExportFormatMarkdown && format != ExportFormatText {
		return nil, validationError("Unsupported export format. Use md or txt.")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	conv, err := s.findOwned(ctx, uow, userId, id)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages(ctx, uow, id)
	if err != nil {
		return nil, err
	}

	content := RenderTranscript(conv, msgs)
	contentType := "text/markdown; charset=utf-8"
	if format == ExportFormatText {
		content = strings.ReplaceAll(content, "## ", "")
		content = strings.ReplaceAll(content, "# ", "")
		contentType = "text/plain; charset=utf-8"
	}

	return &dto.ConversationExport{
		Filename:    fmt.Sprintf("conversation-%s.%s", conv.Id, format),
		ContentType: contentType,
		Content:     content,
	}, nil
}

// RenderTranscript formats a conversation as Markdown.
func RenderTranscript(conv *entity.Conversation, msgs []*entity.Message) string {
	title := fmt.Sprintf("Conversation %s", conv.Id)
	if conv.Title != nil && *conv.Title != "" {
		title = *conv.Title
	}

	lines := []string{"# " + title, ""}
	for _, m := range msgs {
		heading := "## User"
		if m.Role == entity.MessageRoleAssistant {
			heading = "## Assistant"
		}
		lines = append(lines, heading, m.Content)
		if len(m.Sources) > 0 {
			lines = append(lines, "", "Sources:")
			for _, src := range m.Sources {
				line := "- " + src.Filename
				if src.Page > 0 {
					line += fmt.Sprintf(" (p. %d)", src.Page)
				}
				lines = append(lines, line)
			}
		}
		lines = append(lines, "")
	}

	return strings.TrimSpace(strings.Join(lines, "\n")) + "\n"
}

func (s *conversationService) Share(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShareConversationResponse, error) {
	conv, err := s.findOwned(ctx, s.uowFactory.NewUnitOfWork(ctx), userId, id)
	if err != nil {
		return nil, err
	}
	token := s.signer.Build(conv.Id, conv.UserId)
	return &dto.ShareConversationResponse{
		ShareToken: token,
		SharePath:  SharedConversationPath + token,
	}, nil
}

func (s *conversationService) GetShared(ctx context.Context, token string) (*dto.ConversationDetailResponse, error) {
	convId, ownerId, err := s.signer.Parse(token)
	if err != nil {
		return nil, ErrInvalidShareToken
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	conv, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByID{ID: convId},
		specification.UserOwnedBy{UserID: ownerId},
	)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrSharedNotFound
	}
	return s.detail(ctx, uow, conv)
}
