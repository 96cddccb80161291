package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// DocumentChunk is one indexed point. Each collection lives in its own table
// whose embedding column width is fixed when the collection is created.
type DocumentChunk struct {
	Id         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	DocumentId string          `gorm:"type:varchar(64);not null;index"`
	UserId     string          `gorm:"type:varchar(64);not null;index"`
	Text       string          `gorm:"type:text;not null"`
	Metadata   datatypes.JSON  `gorm:"type:jsonb"`
	Embedding  pgvector.Vector `gorm:"type:vector"`
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
}

// VectorCollection records the schema a collection was created with.
type VectorCollection struct {
	Name      string    `gorm:"type:varchar(255);primaryKey"`
	Dimension int       `gorm:"not null"`
	Distance  string    `gorm:"type:varchar(20);not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (VectorCollection) TableName() string {
	return "vector_collections"
}
