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

type userRepository struct {
	store *Store
}

func NewUserRepository(store *Store) contract.UserRepository {
	return &userRepository{store: store}
}

func (r *userRepository) Create(_ context.Context, user *entity.User) error {
	if user.Id == uuid.Nil {
		user.Id = uuid.New()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.store.users.put(user.Id.String(), *user)
	return nil
}

func (r *userRepository) Update(_ context.Context, user *entity.User) error {
	user.UpdatedAt = time.Now()
	r.store.users.put(user.Id.String(), *user)
	return nil
}

func (r *userRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	users, err := r.FindAll(ctx, specs...)
	if err != nil || len(users) == 0 {
		return nil, err
	}
	return users[0], nil
}

func (r *userRepository) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.User, error) {
	match := func(u entity.User, spec specification.Specification) (bool, error) {
		switch s := spec.(type) {
		case specification.ByID:
			return u.Id == s.ID, nil
		case specification.ByEmail:
			return strings.EqualFold(u.Email, s.Email), nil
		case specification.Superusers:
			return u.IsSuperuser, nil
		default:
			return false, unsupported(spec)
		}
	}
	less := func(a, b entity.User, field string) bool {
		if field == "email" {
			return a.Email < b.Email
		}
		return a.CreatedAt.Before(b.CreatedAt)
	}

	rows, err := query(r.store.users.all(), specs, match, less)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.User, len(rows))
	for i := range rows {
		u := rows[i]
		out[i] = &u
	}
	return out, nil
}

func (r *userRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	users, err := r.FindAll(ctx, specs...)
	return int64(len(users)), err
}

type usageRepository struct {
	store *Store
}

func NewUsageRepository(store *Store) contract.UsageRepository {
	return &usageRepository{store: store}
}

func (r *usageRepository) FindByUserId(_ context.Context, userId string) (*entity.UserUsage, error) {
	usage, ok := r.store.usage.get(userId)
	if !ok {
		return nil, nil
	}
	return &usage, nil
}

func (r *usageRepository) Create(_ context.Context, usage *entity.UserUsage) error {
	if usage.Id == uuid.Nil {
		usage.Id = uuid.New()
	}
	now := time.Now()
	usage.CreatedAt = now
	usage.UpdatedAt = now
	r.store.usage.put(usage.UserId, *usage)
	return nil
}

func (r *usageRepository) Update(_ context.Context, usage *entity.UserUsage) error {
	usage.UpdatedAt = time.Now()
	r.store.usage.put(usage.UserId, *usage)
	return nil
}
