package memory

import (
	"context"
	"strings"
	"time"

	"docuchat-be/internal/entity"
	"docuchat-be/internal/repository/contract"
	"docuchat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type conversationRepository struct {
	store *Store
}

func NewConversationRepository(store *Store) contract.ConversationRepository {
	return &conversationRepository{store: store}
}

func (r *conversationRepository) Create(_ context.Context, conv *entity.Conversation) error {
	if conv.Id == uuid.Nil {
		conv.Id = uuid.New()
	}
	now := time.Now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	conv.UpdatedAt = now
	r.store.conversations.put(conv.Id.String(), *conv)
	return nil
}

func (r *conversationRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.store.conversations.delete(id.String())
	return nil
}

func (r *conversationRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conversation, error) {
	convs, err := r.FindAll(ctx, specs...)
	if err != nil || len(convs) == 0 {
		return nil, err
	}
	return convs[0], nil
}

func (r *conversationRepository) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.Conversation, error) {
	rows, err := query(r.store.conversations.all(), specs, matchConversation, lessConversation)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Conversation, len(rows))
	for i := range rows {
		c := rows[i]
		out[i] = &c
	}
	return out, nil
}

func (r *conversationRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	convs, err := r.FindAll(ctx, specs...)
	return int64(len(convs)), err
}

func (r *conversationRepository) Touch(_ context.Context, id uuid.UUID) error {
	r.store.conversations.update(id.String(), func(c *entity.Conversation) bool {
		c.UpdatedAt = time.Now()
		return true
	})
	return nil
}

func matchConversation(c entity.Conversation, spec specification.Specification) (bool, error) {
	switch s := spec.(type) {
	case specification.ByID:
		return c.Id == s.ID, nil
	case specification.UserOwnedBy:
		return c.UserId == s.UserID, nil
	case specification.TitleContains:
		if s.Query == "" {
			return true, nil
		}
		return c.Title != nil && strings.Contains(strings.ToLower(*c.Title), strings.ToLower(s.Query)), nil
	default:
		return false, unsupported(spec)
	}
}

func lessConversation(a, b entity.Conversation, field string) bool {
	if field == "created_at" {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.UpdatedAt.Before(b.UpdatedAt)
}

type messageRepository struct {
	store *Store
}

func NewMessageRepository(store *Store) contract.MessageRepository {
	return &messageRepository{store: store}
}

func (r *messageRepository) Create(_ context.Context, msg *entity.Message) error {
	if msg.Id == uuid.Nil {
		msg.Id = uuid.New()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	r.store.messages.put(msg.Id.String(), *msg)
	return nil
}

func (r *messageRepository) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.Message, error) {
	match := func(m entity.Message, spec specification.Specification) (bool, error) {
		switch s := spec.(type) {
		case specification.ByConversation:
			return m.ConversationId == s.ConversationID, nil
		case specification.MessagesOwnedBy:
			conv, ok := r.store.conversations.get(m.ConversationId.String())
			return ok && conv.UserId == s.UserID, nil
		default:
			return false, unsupported(spec)
		}
	}
	less := func(a, b entity.Message, _ string) bool {
		return a.Timestamp.Before(b.Timestamp)
	}

	rows, err := query(r.store.messages.all(), specs, match, less)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Message, len(rows))
	for i := range rows {
		m := rows[i]
		out[i] = &m
	}
	return out, nil
}

func (r *messageRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	msgs, err := r.FindAll(ctx, specs...)
	return int64(len(msgs)), err
}

func (r *messageRepository) DeleteByConversationId(ctx context.Context, conversationId uuid.UUID) error {
	msgs, err := r.FindAll(ctx, specification.ByConversation{ConversationID: conversationId})
	if err != nil {
		return err
	}
	for _, m := range msgs {
		r.store.messages.delete(m.Id.String())
	}
	return nil
}
