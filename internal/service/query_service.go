package service

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"docuchat-be/internal/dto"
	"docuchat-be/internal/entity"
	"docuchat-be/internal/pkg/logger"
	"docuchat-be/internal/repository/specification"
	"docuchat-be/internal/repository/unitofwork"
	"docuchat-be/pkg/llm"
	"docuchat-be/pkg/quota"
	"docuchat-be/pkg/rag"

	"github.com/google/uuid"
)

// QueryEngine answers questions over the indexed chunks.
type QueryEngine interface {
	Query(ctx context.Context, req rag.Request) (*rag.Result, error)
	Stream(ctx context.Context, req rag.Request, emit func(rag.StreamEvent) error) error
}

type QuotaLedger interface {
	CheckAndReserve(ctx context.Context, userID string, estimated int64) (quota.Decision, error)
	Commit(ctx context.Context, userID string, actual int64) error
}

type IQueryService interface {
	Query(ctx context.Context, userId uuid.UUID, req *dto.QueryRequest) (*dto.QueryResponse, error)
	// Stream emits text fragments and then the citations. Errors returned
	// before the first emit mean nothing was written.
	Stream(ctx context.Context, userId uuid.UUID, req *dto.QueryRequest, emit func(rag.StreamEvent) error) error
}

type queryService struct {
	uowFactory unitofwork.RepositoryFactory
	engine     QueryEngine
	ledger     QuotaLedger
	estimate   int64
	logger     logger.ILogger
}

func NewQueryService(
	uowFactory unitofwork.RepositoryFactory,
	engine QueryEngine,
	ledger QuotaLedger,
	estimate int64,
	log logger.ILogger,
) IQueryService {
	return &queryService{
		uowFactory: uowFactory,
		engine:     engine,
		ledger:     ledger,
		estimate:   estimate,
		logger:     log,
	}
}

// usedTokens approximates consumption as one token per four characters of answer.
func usedTokens(answer string) int64 {
	return int64(utf8.RuneCountInString(answer) / 4)
}

func (s *queryService) reserve(ctx context.Context, userId uuid.UUID) error {
	decision, err := s.ledger.CheckAndReserve(ctx, userId.String(), s.estimate)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return &Error{Code: http.StatusTooManyRequests, Message: decision.Reason, Kind: quota.ErrQuotaExceeded}
	}
	return nil
}

func (s *queryService) commit(ctx context.Context, userId uuid.UUID, answer string) {
	if err := s.ledger.Commit(context.WithoutCancel(ctx), userId.String(), usedTokens(answer)); err != nil {
		s.logger.Error(logger.ModuleQuota, "Failed to record token usage", map[string]interface{}{
			"user_id": userId.String(),
			"error":   err,
		})
	}
}

// prepare checks quota and ownership, then builds the engine request with the
// conversation history in timestamp order.
func (s *queryService) prepare(ctx context.Context, userId uuid.UUID, req *dto.QueryRequest) (rag.Request, error) {
	if err := s.reserve(ctx, userId); err != nil {
		return rag.Request{}, err
	}

	ragReq := rag.Request{
		Question:    strings.TrimSpace(req.Question),
		DocumentIDs: req.DocumentIds,
		UserID:      userId.String(),
	}
	if req.ConversationId == nil {
		return ragReq, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	conv, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByID{ID: *req.ConversationId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return rag.Request{}, err
	}
	if conv == nil {
		return rag.Request{}, ErrConversationNoAccess
	}

	messages, err := uow.MessageRepository().FindAll(ctx,
		specification.ByConversation{ConversationID: conv.Id},
		specification.OrderBy{Field: "timestamp"},
	)
	if err != nil {
		return rag.Request{}, err
	}
	for _, m := range messages {
		ragReq.History = append(ragReq.History, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	return ragReq, nil
}

// persist stores the exchange and bumps the conversation so it sorts first.
func (s *queryService) persist(ctx context.Context, conversationId uuid.UUID, question, answer string, sources []entity.MessageSource) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	err := uow.MessageRepository().Create(ctx, &entity.Message{
		ConversationId: conversationId,
		Role:           entity.MessageRoleUser,
		Content:        question,
		Sources:        []entity.MessageSource{},
	})
	if err != nil {
		return err
	}
	err = uow.MessageRepository().Create(ctx, &entity.Message{
		ConversationId: conversationId,
		Role:           entity.MessageRoleAssistant,
		Content:        answer,
		Sources:        sources,
	})
	if err != nil {
		return err
	}
	if err := uow.ConversationRepository().Touch(ctx, conversationId); err != nil {
		return err
	}
	return uow.Commit()
}

func (s *queryService) Query(ctx context.Context, userId uuid.UUID, req *dto.QueryRequest) (*dto.QueryResponse, error) {
	ragReq, err := s.prepare(ctx, userId, req)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Query(ctx, ragReq)
	if err != nil {
		return nil, err
	}
	s.commit(ctx, userId, result.Answer)

	if req.ConversationId != nil {
		if err := s.persist(ctx, *req.ConversationId, ragReq.Question, result.Answer, result.Sources); err != nil {
			return nil, err
		}
	}

	sources := result.Sources
	if sources == nil {
		sources = []entity.MessageSource{}
	}
	return &dto.QueryResponse{
		Answer:         result.Answer,
		Sources:        sources,
		ConversationId: req.ConversationId,
		Context:        result.Context,
	}, nil
}

func (s *queryService) Stream(ctx context.Context, userId uuid.UUID, req *dto.QueryRequest, emit func(rag.StreamEvent) error) error {
	ragReq, err := s.prepare(ctx, userId, req)
	if err != nil {
		return err
	}

	var (
		answer  strings.Builder
		sources = []entity.MessageSource{}
	)
	err = s.engine.Stream(ctx, ragReq, func(ev rag.StreamEvent) error {
		switch ev.Kind {
		case rag.StreamText:
			answer.WriteString(ev.Text)
		case rag.StreamSources:
			sources = ev.Sources
		}
		return emit(ev)
	})
	if err != nil {
		return err
	}

	s.commit(ctx, userId, answer.String())
	if req.ConversationId != nil {
		// The client has its answer already; a failed save is only logged.
		if err := s.persist(context.WithoutCancel(ctx), *req.ConversationId, ragReq.Question, answer.String(), sources); err != nil {
			s.logger.Error(logger.ModuleRAG, "Failed to save streamed exchange", map[string]interface{}{
				"conversation_id": req.ConversationId.String(),
				"error":           err,
			})
		}
	}
	return nil
}
