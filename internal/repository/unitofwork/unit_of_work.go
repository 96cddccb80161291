package unitofwork

import (
	"context"

	"docuchat-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	DocumentRepository() contract.DocumentRepository
	ConversationRepository() contract.ConversationRepository
	MessageRepository() contract.MessageRepository
	UsageRepository() contract.UsageRepository
}
