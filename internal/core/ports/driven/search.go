package driven

import (
	"context"

	"github.com/custodia-labs/xcmis/internal/core/domain"
)

// SearchEngine evaluates queries against the search index.
type SearchEngine interface {
	// Search returns the hits of q ordered by descending score.
	Search(ctx context.Context, q domain.Query) ([]domain.SearchHit, error)

	// Close releases resources.
	Close() error
}
