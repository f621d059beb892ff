package services

import (
	"context"
	"strings"

	"github.com/custodia-labs/xcmis/internal/core/domain"
	"github.com/custodia-labs/xcmis/internal/core/ports/driven"
	"github.com/custodia-labs/xcmis/internal/logger"
)

const renditionNodePrefix = "rendition-"

// RenditionManager selects rendition providers by the media type of a
// document's content.
type RenditionManager struct {
	providers []driven.RenditionProvider
}

// NewRenditionManager creates a manager with the given providers.
func NewRenditionManager(providers ...driven.RenditionProvider) *RenditionManager {
	return &RenditionManager{providers: providers}
}

// Register adds a provider.
func (m *RenditionManager) Register(p driven.RenditionProvider) {
	m.providers = append(m.providers, p)
}

// Providers returns the providers accepting mimeType.
func (m *RenditionManager) Providers(mimeType string) []driven.RenditionProvider {
	var result []driven.RenditionProvider
	for _, p := range m.providers {
		for _, supported := range p.SupportedMediaTypes() {
			if mediaTypeMatches(supported, mimeType) {
				result = append(result, p)
				break
			}
		}
	}
	return result
}

func (m *RenditionManager) provider(kind string) driven.RenditionProvider {
	for _, p := range m.providers {
		if p.Kind() == kind {
			return p
		}
	}
	return nil
}

// mediaTypeMatches matches a media type against a pattern such as
// "text/plain", "text/*" or "*/*". Parameters are ignored.
func mediaTypeMatches(pattern, mimeType string) bool {
	mimeType, _, _ = strings.Cut(strings.ToLower(mimeType), ";")
	mimeType = strings.TrimSpace(mimeType)
	pattern = strings.ToLower(pattern)
	if pattern == "*/*" || pattern == mimeType {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		major, _, _ := strings.Cut(mimeType, "/")
		return major == prefix
	}
	return false
}

// storeRenditions replaces the stored renditions of a document.
func (se *session) storeRenditions(ctx context.Context, o *ObjectData) error {
	m := se.s.renditions
	if m == nil || o.node == nil || o.role != roleLatest || o.typeDef.BaseType != domain.BaseTypeDocument {
		return nil
	}
	children, err := se.tx.Children(ctx, o.node.ID)
	if err != nil {
		return err
	}
	for _, c := range children {
		if c.PrimaryType == domain.NodeTypeRendition {
			if err := se.tx.RemoveNode(ctx, c.ID); err != nil {
				return err
			}
		}
	}

	cs := o.node.Content
	if cs == nil {
		return nil
	}
	for _, p := range m.Providers(cs.MimeType) {
		if !p.CanStoreRendition() {
			continue
		}
		stream, err := p.GetRenditionStream(ctx, cs)
		if err != nil {
			logger.Warn("Rendition %s of %s failed: %v", p.Kind(), o.ID(), err)
			continue
		}
		n := domain.NewNode(o.node.ID, renditionNodePrefix+p.Kind(), domain.NodeTypeRendition)
		n.SetProperty(domain.NewStringProperty(domain.PropRenditionKind, p.Kind()))
		n.Content = stream
		if _, err := se.tx.AddNode(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// renditions lists the stored and computed renditions of a document.
func (se *session) renditions(ctx context.Context, o *ObjectData) ([]domain.Rendition, error) {
	m := se.s.renditions
	if m == nil || o.typeDef.BaseType != domain.BaseTypeDocument || o.node == nil {
		return nil, nil
	}
	var result []domain.Rendition
	if o.role == roleLatest {
		children, err := se.tx.Children(ctx, o.node.ID)
		if err != nil {
			return nil, err
		}
		for _, c := range children {
			if c.PrimaryType != domain.NodeTypeRendition || c.Content == nil {
				continue
			}
			result = append(result, domain.Rendition{
				StreamID: c.ID,
				Kind:     c.Properties.Get(domain.PropRenditionKind).String(),
				MimeType: c.Content.MimeType,
				Title:    c.Content.FileName,
				Length:   c.Content.Length(),
			})
		}
	}

	cs := o.node.Content
	if cs == nil {
		return result, nil
	}
	for _, p := range m.Providers(cs.MimeType) {
		if p.CanStoreRendition() && o.role == roleLatest {
			continue
		}
		stream, err := p.GetRenditionStream(ctx, cs)
		if err != nil {
			logger.Warn("Rendition %s of %s failed: %v", p.Kind(), o.ID(), err)
			continue
		}
		result = append(result, domain.Rendition{
			StreamID: o.ID() + domain.PathSeparator + p.Kind(),
			Kind:     p.Kind(),
			MimeType: stream.MimeType,
			Title:    stream.FileName,
			Length:   stream.Length(),
		})
	}
	return result, nil
}

// renditionStream returns one rendition of a document.
func (se *session) renditionStream(ctx context.Context, o *ObjectData, streamID string) (*domain.ContentStream, error) {
	if o.typeDef.BaseType != domain.BaseTypeDocument || o.node == nil {
		return nil, domain.Constraintf("object %s has no renditions", o.ID())
	}
	if kind, ok := strings.CutPrefix(streamID, o.ID()+domain.PathSeparator); ok && se.s.renditions != nil {
		p := se.s.renditions.provider(kind)
		if p == nil || o.node.Content == nil {
			return nil, domain.NotFoundf("rendition %s not found", streamID)
		}
		return p.GetRenditionStream(ctx, o.node.Content)
	}
	if o.role == roleLatest {
		n, err := se.tx.Node(ctx, streamID)
		if err == nil && n.PrimaryType == domain.NodeTypeRendition && n.ParentID == o.node.ID && n.Content != nil {
			return n.Content.Clone(), nil
		}
	}
	return nil, domain.NotFoundf("rendition %s not found", streamID)
}
