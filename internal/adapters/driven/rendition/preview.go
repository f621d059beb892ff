// Package rendition provides rendition providers for the storage facade.
package rendition

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/xcmis/internal/core/domain"
	"github.com/custodia-labs/xcmis/internal/core/ports/driven"
)

// KindPreview is the kind of text preview renditions.
const KindPreview = "xcmis:preview"

// DefaultPreviewLength is the number of characters in a preview.
const DefaultPreviewLength = 512

// Verify interface compliance.
var _ driven.RenditionProvider = (*TextPreview)(nil)

// TextPreview renders the first characters of text content, whitespace
// collapsed, as a text/plain rendition.
type TextPreview struct {
	length int
	store  bool
}

// NewTextPreview creates a provider producing previews of length
// characters. Stored previews are written with the document; otherwise they
// are computed on request.
func NewTextPreview(length int, store bool) *TextPreview {
	if length <= 0 {
		length = DefaultPreviewLength
	}
	return &TextPreview{length: length, store: store}
}

func (p *TextPreview) Kind() string { return KindPreview }

func (p *TextPreview) SupportedMediaTypes() []string {
	return []string{"text/*", "application/json", "application/xml"}
}

func (p *TextPreview) CanStoreRendition() bool { return p.store }

func (p *TextPreview) GetRenditionStream(_ context.Context, src *domain.ContentStream) (*domain.ContentStream, error) {
	if src == nil {
		return nil, domain.InvalidArgumentf("no content to preview")
	}
	if !utf8.Valid(src.Data) {
		return nil, domain.Constraintf("content of %q is not valid UTF-8", src.FileName)
	}

	var b strings.Builder
	n := 0
	for _, field := range strings.Fields(string(src.Data)) {
		if n > 0 {
			if n == p.length {
				break
			}
			b.WriteByte(' ')
			n++
		}
		for _, r := range field {
			if n == p.length {
				break
			}
			b.WriteRune(r)
			n++
		}
	}

	return &domain.ContentStream{
		FileName: previewName(src.FileName),
		MimeType: "text/plain; charset=utf-8",
		Data:     bytes.TrimSpace([]byte(b.String())),
	}, nil
}

func previewName(name string) string {
	if name == "" {
		return "preview.txt"
	}
	return fmt.Sprintf("%s.preview.txt", strings.TrimSuffix(name, path.Ext(name)))
}
