package entity

import (
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// MetadataProcessingError is the reserved metadata key holding the failure message.
const MetadataProcessingError = "processing_error"

// IsTerminal reports whether no further transition is allowed.
func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentStatusCompleted || s == DocumentStatusFailed
}

type Document struct {
	Id               uuid.UUID
	UserId           uuid.UUID
	Filename         string
	OriginalFilename string
	FileSize         int64
	FileType         string
	Status           DocumentStatus
	ChunkCount       int
	TotalPages       *int
	CollectionId     *string
	Metadata         map[string]interface{}
	UploadedAt       time.Time
	UpdatedAt        time.Time
}

// ProcessingError returns the stored failure message, if any.
func (d *Document) ProcessingError() string {
	if d.Metadata == nil {
		return ""
	}
	msg, _ := d.Metadata[MetadataProcessingError].(string)
	return msg
}
