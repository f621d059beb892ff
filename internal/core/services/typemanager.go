package services

import (
	"context"
	"errors"
	"sort"

	"github.com/custodia-labs/xcmis/internal/core/domain"
	"github.com/custodia-labs/xcmis/internal/core/ports/driven"
	"github.com/custodia-labs/xcmis/internal/logger"
)

// TypeManager resolves type definitions. The four base types are built in;
// custom types are kept in a driven.TypeStore with their inherited property
// definitions already merged.
type TypeManager struct {
	store driven.TypeStore
	base  map[string]*domain.TypeDefinition
}

// NewTypeManager creates a type manager over store.
func NewTypeManager(store driven.TypeStore) *TypeManager {
	base := make(map[string]*domain.TypeDefinition)
	for _, def := range domain.BaseTypeDefinitions() {
		base[def.ID] = def
	}
	return &TypeManager{store: store, base: base}
}

// Get returns a type definition or domain.ErrTypeNotFound.
func (m *TypeManager) Get(ctx context.Context, id string) (*domain.TypeDefinition, error) {
	if def, ok := m.base[id]; ok {
		return def.Clone(), nil
	}
	if m.store == nil {
		return nil, domain.TypeNotFoundf("type %s not found", id)
	}
	return m.store.Get(ctx, id)
}

// Children returns the direct subtypes of parentID, or the base types when
// parentID is empty.
func (m *TypeManager) Children(ctx context.Context, parentID string) ([]*domain.TypeDefinition, error) {
	if parentID == "" {
		result := make([]*domain.TypeDefinition, 0, len(m.base))
		for _, def := range m.base {
			result = append(result, def.Clone())
		}
		sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
		return result, nil
	}
	if _, err := m.Get(ctx, parentID); err != nil {
		return nil, err
	}
	if m.store == nil {
		return nil, nil
	}

	all, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	var result []*domain.TypeDefinition
	for _, def := range all {
		if def.ParentID == parentID {
			result = append(result, def)
		}
	}
	return result, nil
}

// IsSubtype reports whether id is ancestorID or derives from it.
func (m *TypeManager) IsSubtype(ctx context.Context, id, ancestorID string) bool {
	for id != "" {
		if id == ancestorID {
			return true
		}
		def, err := m.Get(ctx, id)
		if err != nil {
			return false
		}
		id = def.ParentID
	}
	return false
}

// Add registers a custom type. Property definitions of the parent are inherited.
func (m *TypeManager) Add(ctx context.Context, def *domain.TypeDefinition) (*domain.TypeDefinition, error) {
	if m.store == nil {
		return nil, domain.NotSupportedf("type store is not configured")
	}
	def = def.Clone()
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if _, err := m.Get(ctx, def.ID); err == nil {
		return nil, domain.Constraintf("type %s already exists", def.ID)
	} else if !errors.Is(err, domain.ErrTypeNotFound) {
		return nil, err
	}
	if def.ParentID == "" {
		def.ParentID = string(def.BaseType)
	}
	parent, err := m.Get(ctx, def.ParentID)
	if err != nil {
		return nil, err
	}
	if err := def.Inherit(parent); err != nil {
		return nil, err
	}

	if err := m.store.Save(ctx, def); err != nil {
		return nil, domain.WrapStorage(err, "saving type "+def.ID)
	}
	logger.Debug("registered type %s", def)
	return def.Clone(), nil
}

// Remove unregisters a custom type without subtypes.
func (m *TypeManager) Remove(ctx context.Context, id string) error {
	if _, ok := m.base[id]; ok {
		return domain.Constraintf("base type %s cannot be removed", id)
	}
	if _, err := m.Get(ctx, id); err != nil {
		return err
	}
	children, err := m.Children(ctx, id)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return domain.Constraintf("type %s has %d subtypes", id, len(children))
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return domain.WrapStorage(err, "deleting type "+id)
	}
	return nil
}

// Load registers or replaces a batch of custom types, parents first.
// Types that cannot be resolved are skipped and reported.
func (m *TypeManager) Load(ctx context.Context, defs []*domain.TypeDefinition) (int, error) {
	if m.store == nil {
		return 0, domain.NotSupportedf("type store is not configured")
	}
	pending := make([]*domain.TypeDefinition, 0, len(defs))
	for _, d := range defs {
		pending = append(pending, d.Clone())
	}

	loaded := 0
	for len(pending) > 0 {
		var next []*domain.TypeDefinition
		for _, def := range pending {
			if _, ok := m.base[def.ID]; ok {
				return loaded, domain.Constraintf("base type %s cannot be redefined", def.ID)
			}
			if err := def.Validate(); err != nil {
				return loaded, err
			}
			if def.ParentID == "" {
				def.ParentID = string(def.BaseType)
			}
			parent, err := m.Get(ctx, def.ParentID)
			if errors.Is(err, domain.ErrTypeNotFound) {
				next = append(next, def)
				continue
			}
			if err != nil {
				return loaded, err
			}
			if err := def.Inherit(parent); err != nil {
				return loaded, err
			}
			if err := m.store.Save(ctx, def); err != nil {
				return loaded, domain.WrapStorage(err, "saving type "+def.ID)
			}
			loaded++
		}
		if len(next) == len(pending) {
			return loaded, domain.TypeNotFoundf("parent type %s of %s not found", next[0].ParentID, next[0].ID)
		}
		pending = next
	}
	return loaded, nil
}
