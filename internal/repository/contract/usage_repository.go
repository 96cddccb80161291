package contract

import (
	"context"

	"docuchat-be/internal/entity"
)

type UsageRepository interface {
	FindByUserId(ctx context.Context, userId string) (*entity.UserUsage, error)
	Create(ctx context.Context, usage *entity.UserUsage) error
	Update(ctx context.Context, usage *entity.UserUsage) error
}
