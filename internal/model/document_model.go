package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Document struct {
	Id               uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId           uuid.UUID      `gorm:"type:uuid;not null;index"`
	Filename         string         `gorm:"type:varchar(255);not null"`
	OriginalFilename string         `gorm:"type:varchar(255);not null"`
	FileSize         int64          `gorm:"not null;default:0"`
	FileType         string         `gorm:"type:varchar(50);not null"`
	ProcessingStatus string         `gorm:"type:varchar(50);not null;default:'pending';index"`
	ChunkCount       int            `gorm:"default:0"`
	TotalPages       *int           `gorm:""`
	CollectionId     *string        `gorm:"type:varchar(255)"`
	Metadata         datatypes.JSON `gorm:"type:jsonb"`
	UploadDate       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime"`
}

func (Document) TableName() string {
	return "documents"
}
