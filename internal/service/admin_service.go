package service

import (
	"context"
	"errors"
	"net/http"

	"docuchat-be/internal/dto"
	"docuchat-be/internal/entity"
	"docuchat-be/internal/pkg/logger"
	"docuchat-be/internal/repository/specification"
	"docuchat-be/internal/repository/unitofwork"
	"docuchat-be/pkg/quota"

	"github.com/google/uuid"
)

var ErrLogNotFound = NewError(http.StatusNotFound, "Log entry not found")

type QuotaResetter interface {
	Reset(ctx context.Context, userID string, resetType quota.ResetType) (*entity.UserUsage, error)
}

type IAdminService interface {
	ListUsers(ctx context.Context, page, limit int) ([]*dto.UserResponse, error)
	ResetQuota(ctx context.Context, userId uuid.UUID, req *dto.ResetQuotaRequest) (*dto.ResetQuotaResponse, error)

	// Logs
	GetSystemLogs(ctx context.Context, page, limit int, level string) (*dto.LogListResponse, error)
	GetLogDetail(ctx context.Context, logId string) (*logger.LogEntry, error)
}

type adminService struct {
	uowFactory unitofwork.RepositoryFactory
	quota      QuotaResetter
	logger     logger.ILogger
}

func NewAdminService(uowFactory unitofwork.RepositoryFactory, quota QuotaResetter, log logger.ILogger) IAdminService {
	return &adminService{
		uowFactory: uowFactory,
		quota:      quota,
		logger:     log,
	}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func (s *adminService) ListUsers(ctx context.Context, page, limit int) ([]*dto.UserResponse, error) {
	page, limit = normalizePage(page, limit)
	users, err := s.uowFactory.NewUnitOfWork(ctx).UserRepository().FindAll(ctx,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: (page - 1) * limit},
	)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out, nil
}

func (s *adminService) ResetQuota(ctx context.Context, userId uuid.UUID, req *dto.ResetQuotaRequest) (*dto.ResetQuotaResponse, error) {
	user, err := s.uowFactory.NewUnitOfWork(ctx).UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	usage, err := s.quota.Reset(ctx, userId.String(), quota.ResetType(req.Type))
	if err != nil {
		if errors.Is(err, quota.ErrInvalidResetType) {
			return nil, validationError(err.Error())
		}
		return nil, err
	}

	s.logger.Info(logger.ModuleAdmin, "Quota reset", map[string]interface{}{
		"user_id": userId.String(),
		"type":    req.Type,
	})
	return &dto.ResetQuotaResponse{
		UserId:              usage.UserId,
		TokensUsedToday:     usage.TokensUsedToday,
		TokensUsedThisMonth: usage.TokensUsedThisMonth,
		RequestsToday:       usage.RequestsToday,
	}, nil
}

func (s *adminService) GetSystemLogs(_ context.Context, page, limit int, level string) (*dto.LogListResponse, error) {
	page, limit = normalizePage(page, limit)
	logs, err := s.logger.GetLogs(level, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	return &dto.LogListResponse{Logs: logs, Page: page, Limit: limit}, nil
}

func (s *adminService) GetLogDetail(_ context.Context, logId string) (*logger.LogEntry, error) {
	entry, err := s.logger.GetLogById(logId)
	if err != nil {
		if errors.Is(err, logger.ErrLogNotFound) {
			return nil, ErrLogNotFound
		}
		return nil, err
	}
	return entry, nil
}
