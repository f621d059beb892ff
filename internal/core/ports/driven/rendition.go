package driven

import (
	"context"

	"github.com/custodia-labs/xcmis/internal/core/domain"
)

// RenditionProvider derives renditions from document content.
type RenditionProvider interface {
	// Kind is the rendition kind, e.g. "cmis:thumbnail".
	Kind() string

	// SupportedMediaTypes lists the source MIME types handled, wildcards allowed ("text/*").
	SupportedMediaTypes() []string

	// CanStoreRendition is true when renditions should be stored with the
	// document instead of computed on every request.
	CanStoreRendition() bool

	// GetRenditionStream produces the rendition of src.
	GetRenditionStream(ctx context.Context, src *domain.ContentStream) (*domain.ContentStream, error)
}
