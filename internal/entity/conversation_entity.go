package entity

import (
	"time"

	"github.com/google/uuid"
)

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

type Conversation struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Title     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MessageSource is a citation stored alongside an assistant message.
type MessageSource struct {
	DocumentId     string  `json:"document_id"`
	Filename       string  `json:"filename"`
	Page           int     `json:"page"`
	ChunkText      string  `json:"chunk_text"`
	RelevanceScore float64 `json:"relevance_score"`
}

type Message struct {
	Id             uuid.UUID
	ConversationId uuid.UUID
	Role           MessageRole
	Content        string
	Sources        []MessageSource
	Timestamp      time.Time
}
