package mapper

import (
	"docuchat-be/internal/entity"
	"docuchat-be/internal/model"
)

type UsageMapper struct{}

func NewUsageMapper() *UsageMapper {
	return &UsageMapper{}
}

func (m *UsageMapper) ToEntity(u *model.UserUsage) *entity.UserUsage {
	if u == nil {
		return nil
	}
	return &entity.UserUsage{
		Id:                  u.Id,
		UserId:              u.UserId,
		TokensUsedToday:     u.TokensUsedToday,
		TokensUsedThisMonth: u.TokensUsedThisMonth,
		TotalTokensUsed:     u.TotalTokensUsed,
		DailyTokenLimit:     u.DailyTokenLimit,
		MonthlyTokenLimit:   u.MonthlyTokenLimit,
		RequestsToday:       u.RequestsToday,
		TotalRequests:       u.TotalRequests,
		LastDailyReset:      u.LastDailyReset,
		LastMonthlyReset:    u.LastMonthlyReset,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

func (m *UsageMapper) ToModel(u *entity.UserUsage) *model.UserUsage {
	if u == nil {
		return nil
	}
	return &model.UserUsage{
		Id:                  u.Id,
		UserId:              u.UserId,
		TokensUsedToday:     u.TokensUsedToday,
		TokensUsedThisMonth: u.TokensUsedThisMonth,
		TotalTokensUsed:     u.TotalTokensUsed,
		DailyTokenLimit:     u.DailyTokenLimit,
		MonthlyTokenLimit:   u.MonthlyTokenLimit,
		RequestsToday:       u.RequestsToday,
		TotalRequests:       u.TotalRequests,
		LastDailyReset:      u.LastDailyReset,
		LastMonthlyReset:    u.LastMonthlyReset,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}
