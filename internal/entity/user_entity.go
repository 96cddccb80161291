package entity

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	Id          uuid.UUID
	Email       string
	IsActive    bool
	IsSuperuser bool
	IsVerified  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
