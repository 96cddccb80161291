package contract

import (
	"context"

	"docuchat-be/internal/entity"
	"docuchat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	// UpdateIfStatus writes the mutable fields of doc only if the stored row is
	// still in the expected status. It never inserts.
	UpdateIfStatus(ctx context.Context, doc *entity.Document, expected entity.DocumentStatus) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// TransitionStatus moves the document from one status to another only if it is
	// currently in the expected status. It reports whether a row changed.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to entity.DocumentStatus) (bool, error)
}
