package dto

import (
	"time"

	"github.com/google/uuid"
)

// Status reported by the upload endpoint once the file is staged and queued.
const UploadStatusProcessingStarted = "upload_success_processing_started"

type UploadDocumentResponse struct {
	Id       uuid.UUID `json:"id"`
	Filename string    `json:"filename"`
	Status   string    `json:"status"`
}

type DocumentListItem struct {
	Id         uuid.UUID `json:"id"`
	Filename   string    `json:"filename"`
	UploadDate time.Time `json:"upload_date"`
	Status     string    `json:"status"`
	ChunkCount int       `json:"chunk_count"`
	FileSize   int64     `json:"file_size"`
}

type DocumentResponse struct {
	Id               uuid.UUID              `json:"id"`
	Filename         string                 `json:"filename"`
	OriginalFilename string                 `json:"original_filename"`
	UploadDate       time.Time              `json:"upload_date"`
	Status           string                 `json:"status"`
	ChunkCount       int                    `json:"chunk_count"`
	FileSize         int64                  `json:"file_size"`
	FileType         string                 `json:"file_type"`
	TotalPages       *int                   `json:"total_pages"`
	CollectionId     *string                `json:"collection_id"`
	Metadata         map[string]interface{} `json:"metadata"`
	Error            string                 `json:"error,omitempty"`
}

// IngestDocumentMessage is the payload queued for the ingestion workers.
type IngestDocumentMessage struct {
	DocumentId uuid.UUID `json:"document_id"`
	StagedPath string    `json:"staged_path"`
}
