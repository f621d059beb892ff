package index

import (
	"context"
	"strings"

	"github.com/custodia-labs/xcmis/internal/core/domain"
	"github.com/custodia-labs/xcmis/internal/core/ports/driven"
)

// DefaultMaxContent is the number of content bytes indexed per document.
const DefaultMaxContent = 1 << 20

// Verify interface compliance.
var _ driven.IndexListener = (*Listener)(nil)

// Listener turns repository change events into index transactions.
type Listener struct {
	manager    *Manager
	maxContent int
}

// NewListener creates a listener feeding m. Text content beyond maxContent
// bytes is not indexed; zero selects DefaultMaxContent.
func NewListener(m *Manager, maxContent int) *Listener {
	if maxContent <= 0 {
		maxContent = DefaultMaxContent
	}
	return &Listener{manager: m, maxContent: maxContent}
}

func (l *Listener) Created(ctx context.Context, events []domain.ChangeEvent) error {
	tx := NewTransaction()
	for _, ev := range events {
		if doc := l.document(ev); doc != nil {
			tx.Added = append(tx.Added, doc)
		}
	}
	return l.manager.Apply(ctx, tx)
}

func (l *Listener) Updated(ctx context.Context, events []domain.ChangeEvent) error {
	tx := NewTransaction()
	for _, ev := range events {
		if doc := l.document(ev); doc != nil {
			tx.Updated = append(tx.Updated, doc)
		}
	}
	return l.manager.Apply(ctx, tx)
}

func (l *Listener) Removed(ctx context.Context, ids []string) error {
	tx := NewTransaction()
	tx.Removed = append(tx.Removed, ids...)
	return l.manager.Apply(ctx, tx)
}

// document builds the indexed form of an event's object.
func (l *Listener) document(ev domain.ChangeEvent) *Document {
	obj := ev.Object
	if obj == nil {
		return nil
	}
	doc := NewDocument(obj.ID)
	doc.Add(FieldType, obj.TypeID)
	doc.Add(FieldBase, string(obj.BaseType))
	doc.Add(FieldName, obj.Name())
	doc.Add(FieldParent, ev.ParentIDs...)

	for _, id := range sortedIDs(obj.Properties) {
		p := obj.Properties[id]
		if p.Type != domain.PropertyTypeString {
			continue
		}
		for _, v := range p.Strings() {
			doc.AddText(v)
		}
	}
	if cs := ev.Content; cs != nil && strings.HasPrefix(strings.ToLower(cs.MimeType), "text/") {
		data := cs.Data
		if len(data) > l.maxContent {
			data = data[:l.maxContent]
		}
		doc.AddText(string(data))
	}
	return doc
}
