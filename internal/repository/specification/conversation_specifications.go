package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TitleContains is a case-insensitive substring match on conversation titles.
type TitleContains struct {
	Query string
}

func (s TitleContains) Apply(db *gorm.DB) *gorm.DB {
	if s.Query == "" {
		return db
	}
	return db.Where("title ILIKE ?", "%"+s.Query+"%")
}

type ByConversation struct {
	ConversationID uuid.UUID
}

func (s ByConversation) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("conversation_id = ?", s.ConversationID)
}

// MessagesOwnedBy restricts messages to conversations owned by the user.
type MessagesOwnedBy struct {
	UserID uuid.UUID
}

func (s MessagesOwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("conversations.user_id = ?", s.UserID)
}
