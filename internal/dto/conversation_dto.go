package dto

import (
	"time"

	"docuchat-be/internal/entity"

	"github.com/google/uuid"
)

type CreateConversationRequest struct {
	Title *string `json:"title" validate:"omitempty,max=255"`
}

type ConversationResponse struct {
	Id        uuid.UUID `json:"id"`
	Title     *string   `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MessageResponse struct {
	Id        uuid.UUID              `json:"id"`
	Role      string                 `json:"role"`
	Content   string                 `json:"content"`
	Sources   []entity.MessageSource `json:"sources"`
	Timestamp time.Time              `json:"timestamp"`
}

type ConversationDetailResponse struct {
	Id        uuid.UUID         `json:"id"`
	Title     *string           `json:"title"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Messages  []MessageResponse `json:"messages"`
}

type SendMessageRequest struct {
	Question    string   `json:"question" validate:"required,min=2,max=5000"`
	DocumentIds []string `json:"document_ids" validate:"omitempty,dive,uuid"`
}

type SendMessageResponse struct {
	Answer         string                 `json:"answer"`
	Sources        []entity.MessageSource `json:"sources"`
	ConversationId uuid.UUID              `json:"conversation_id"`
}

type ShareConversationResponse struct {
	ShareToken string `json:"share_token"`
	SharePath  string `json:"share_path"`
}

// ConversationExport is a rendered transcript ready to be sent as an attachment.
type ConversationExport struct {
	Filename    string
	ContentType string
	Content     string
}
