package dto

import (
	"docuchat-be/internal/pkg/logger"
)

type ResetQuotaRequest struct {
	Type string `json:"type" validate:"required,oneof=daily monthly all"`
}

type ResetQuotaResponse struct {
	UserId              string `json:"user_id"`
	TokensUsedToday     int64  `json:"tokens_used_today"`
	TokensUsedThisMonth int64  `json:"tokens_used_this_month"`
	RequestsToday       int    `json:"requests_today"`
}

type LogListResponse struct {
	Logs  []logger.LogEntry `json:"logs"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
