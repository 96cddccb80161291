package entity

import (
	"time"

	"github.com/google/uuid"
)

type UserUsage struct {
	Id                  uuid.UUID
	UserId              string
	TokensUsedToday     int64
	TokensUsedThisMonth int64
	TotalTokensUsed     int64
	DailyTokenLimit     int64
	MonthlyTokenLimit   int64
	RequestsToday       int
	TotalRequests       int
	LastDailyReset      time.Time
	LastMonthlyReset    time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
