package service

import (
	"context"

	"docuchat-be/internal/dto"
	"docuchat-be/internal/repository/specification"
	"docuchat-be/internal/repository/unitofwork"
	"docuchat-be/pkg/quota"

	"github.com/google/uuid"
)

type UsageReporter interface {
	Stats(ctx context.Context, userID string) (*quota.Stats, error)
}

type IStatsService interface {
	Stats(ctx context.Context, userId uuid.UUID) (*dto.StatsResponse, error)
	Usage(ctx context.Context, userId uuid.UUID) (*quota.Stats, error)
}

type statsService struct {
	uowFactory unitofwork.RepositoryFactory
	usage      UsageReporter
}

func NewStatsService(uowFactory unitofwork.RepositoryFactory, usage UsageReporter) IStatsService {
	return &statsService{uowFactory: uowFactory, usage: usage}
}

func (s *statsService) Stats(ctx context.Context, userId uuid.UUID) (*dto.StatsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	documents, err := uow.DocumentRepository().Count(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return nil, err
	}
	conversations, err := uow.ConversationRepository().Count(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return nil, err
	}
	messages, err := uow.MessageRepository().Count(ctx, specification.MessagesOwnedBy{UserID: userId})
	if err != nil {
		return nil, err
	}

	return &dto.StatsResponse{
		Documents:     documents,
		Conversations: conversations,
		Messages:      messages,
	}, nil
}

func (s *statsService) Usage(ctx context.Context, userId uuid.UUID) (*quota.Stats, error) {
	return s.usage.Stats(ctx, userId.String())
}
