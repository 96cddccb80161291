package memory

import (
	"context"

	"docuchat-be/internal/repository/contract"
	"docuchat-be/internal/repository/unitofwork"
)

type repositoryFactory struct {
	store *Store
}

// NewRepositoryFactory returns a factory whose units of work all share store.
func NewRepositoryFactory(store *Store) unitofwork.RepositoryFactory {
	return &repositoryFactory{store: store}
}

func (f *repositoryFactory) NewUnitOfWork(context.Context) unitofwork.UnitOfWork {
	return &unitOfWork{store: f.store}
}

// unitOfWork writes through immediately. Rollback does not undo earlier writes.
type unitOfWork struct {
	store *Store
}

func (u *unitOfWork) Begin(context.Context) error { return nil }
func (u *unitOfWork) Commit() error               { return nil }
func (u *unitOfWork) Rollback() error             { return nil }

func (u *unitOfWork) UserRepository() contract.UserRepository {
	return NewUserRepository(u.store)
}

func (u *unitOfWork) DocumentRepository() contract.DocumentRepository {
	return NewDocumentRepository(u.store)
}

func (u *unitOfWork) ConversationRepository() contract.ConversationRepository {
	return NewConversationRepository(u.store)
}

func (u *unitOfWork) MessageRepository() contract.MessageRepository {
	return NewMessageRepository(u.store)
}

func (u *unitOfWork) UsageRepository() contract.UsageRepository {
	return NewUsageRepository(u.store)
}
