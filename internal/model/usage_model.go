package model

import (
	"time"

	"github.com/google/uuid"
)

type UserUsage struct {
	Id                  uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId              string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	TokensUsedToday     int64     `gorm:"default:0"`
	TokensUsedThisMonth int64     `gorm:"default:0"`
	TotalTokensUsed     int64     `gorm:"default:0"`
	DailyTokenLimit     int64     `gorm:"default:300000"`
	MonthlyTokenLimit   int64     `gorm:"default:5000000"`
	RequestsToday       int       `gorm:"default:0"`
	TotalRequests       int       `gorm:"default:0"`
	LastDailyReset      time.Time `gorm:"not null"`
	LastMonthlyReset    time.Time `gorm:"not null"`
	CreatedAt           time.Time `gorm:"autoCreateTime"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime"`
}

func (UserUsage) TableName() string {
	return "user_usage"
}
