package service

import (
	"context"
	"time"

	"docuchat-be/internal/entity"
	"docuchat-be/internal/repository/unitofwork"
	"docuchat-be/pkg/quota"
)

// usageStore persists quota ledgers through the repository layer.
type usageStore struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewUsageStore(uowFactory unitofwork.RepositoryFactory) quota.Store {
	return &usageStore{uowFactory: uowFactory}
}

func (s *usageStore) GetOrCreate(ctx context.Context, userID string, limits quota.Limits) (*entity.UserUsage, error) {
	repo := s.uowFactory.NewUnitOfWork(ctx).UsageRepository()

	usage, err := repo.FindByUserId(ctx, userID)
	if err != nil {
		return nil, err
	}
	if usage != nil {
		return usage, nil
	}

	now := time.Now().UTC()
	usage = &entity.UserUsage{
		UserId:            userID,
		DailyTokenLimit:   limits.Daily,
		MonthlyTokenLimit: limits.Monthly,
		LastDailyReset:    now,
		LastMonthlyReset:  now,
	}
	if err := repo.Create(ctx, usage); err != nil {
		existing, findErr := repo.FindByUserId(ctx, userID)
		if findErr != nil || existing == nil {
			return nil, err
		}
		return existing, nil
	}
	return usage, nil
}

func (s *usageStore) Save(ctx context.Context, usage *entity.UserUsage) error {
	return s.uowFactory.NewUnitOfWork(ctx).UsageRepository().Update(ctx, usage)
}
