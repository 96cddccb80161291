package dto

import (
	"docuchat-be/internal/entity"

	"github.com/google/uuid"
)

type QueryRequest struct {
	Question       string     `json:"question" validate:"required,min=2,max=5000"`
	DocumentIds    []string   `json:"document_ids" validate:"omitempty,dive,uuid"`
	ConversationId *uuid.UUID `json:"conversation_id"`
}

type QueryResponse struct {
	Answer         string                 `json:"answer"`
	Sources        []entity.MessageSource `json:"sources"`
	ConversationId *uuid.UUID             `json:"conversation_id"`
	Context        string                 `json:"context"`
}
