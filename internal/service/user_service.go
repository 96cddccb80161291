package service

import (
	"context"
	"strings"

	"docuchat-be/internal/dto"
	"docuchat-be/internal/entity"
	"docuchat-be/internal/pkg/logger"
	"docuchat-be/internal/repository/specification"
	"docuchat-be/internal/repository/unitofwork"
	"docuchat-be/pkg/identity"
)

type IUserService interface {
	// ResolveUser finds the user for verified claims, creating it on first login.
	ResolveUser(ctx context.Context, claims *identity.Claims) (*entity.User, error)
	Me(user *entity.User) *dto.UserResponse
}

type userService struct {
	uowFactory  unitofwork.RepositoryFactory
	adminEmails map[string]struct{}
	logger      logger.ILogger
}

func NewUserService(uowFactory unitofwork.RepositoryFactory, adminEmails []string, log logger.ILogger) IUserService {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		admins[strings.ToLower(strings.TrimSpace(email))] = struct{}{}
	}
	return &userService{
		uowFactory:  uowFactory,
		adminEmails: admins,
		logger:      log,
	}
}

func (s *userService) isAdmin(email string) bool {
	_, ok := s.adminEmails[strings.ToLower(email)]
	return ok
}

func (s *userService) ResolveUser(ctx context.Context, claims *identity.Claims) (*entity.User, error) {
	if claims == nil || claims.Email == "" {
		return nil, identity.ErrMissingEmail
	}
	repo := s.uowFactory.NewUnitOfWork(ctx).UserRepository()

	user, err := repo.FindOne(ctx, specification.ByEmail{Email: claims.Email})
	if err != nil {
		return nil, err
	}

	if user == nil {
		user = &entity.User{
			Email:       strings.ToLower(claims.Email),
			IsActive:    true,
			IsSuperuser: s.isAdmin(claims.Email),
			IsVerified:  claims.EmailVerified,
		}
		if err := repo.Create(ctx, user); err != nil {
			// Lost a race with a concurrent first request for the same email.
			existing, findErr := repo.FindOne(ctx, specification.ByEmail{Email: claims.Email})
			if findErr != nil || existing == nil {
				return nil, err
			}
			return existing, nil
		}
		s.logger.Info(logger.ModuleAuth, "User created from token", map[string]interface{}{
			"user_id":      user.Id,
			"is_superuser": user.IsSuperuser,
		})
		return user, nil
	}

	updated := false
	if !user.IsActive {
		user.IsActive = true
		updated = true
	}
	if claims.EmailVerified && !user.IsVerified {
		user.IsVerified = true
		updated = true
	}
	if updated {
		if err := repo.Update(ctx, user); err != nil {
			return nil, err
		}
	}
	return user, nil
}

func (s *userService) Me(user *entity.User) *dto.UserResponse {
	return toUserResponse(user)
}

func toUserResponse(user *entity.User) *dto.UserResponse {
	return &dto.UserResponse{
		Id:          user.Id,
		Email:       user.Email,
		IsActive:    user.IsActive,
		IsSuperuser: user.IsSuperuser,
		IsVerified:  user.IsVerified,
		CreatedAt:   user.CreatedAt,
	}
}
