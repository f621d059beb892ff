package driven

import (
	"context"

	"github.com/custodia-labs/xcmis/internal/core/domain"
)

// IndexListener receives the objects changed by a committed transaction.
type IndexListener interface {
	// Created is called with newly created objects.
	Created(ctx context.Context, events []domain.ChangeEvent) error

	// Updated is called with changed objects.
	Updated(ctx context.Context, events []domain.ChangeEvent) error

	// Removed is called with the ids of deleted objects.
	Removed(ctx context.Context, ids []string) error
}
