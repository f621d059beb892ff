package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/xcmis/internal/core/domain"
	"github.com/custodia-labs/xcmis/internal/core/ports/driven"
)

// Ensure TypeStore implements the interface.
var _ driven.TypeStore = (*TypeStore)(nil)

// TypeStore is an in-memory implementation of driven.TypeStore.
type TypeStore struct {
	mu    sync.RWMutex
	types map[string]*domain.TypeDefinition
}

// NewTypeStore creates a new in-memory type store.
func NewTypeStore() *TypeStore {
	return &TypeStore{
		types: make(map[string]*domain.TypeDefinition),
	}
}

// Get retrieves a type by ID.
func (s *TypeStore) Get(_ context.Context, id string) (*domain.TypeDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.types[id]
	if !ok {
		return nil, domain.TypeNotFoundf("type %s not found", id)
	}
	return def.Clone(), nil
}

// List returns all stored types ordered by ID.
func (s *TypeStore) List(_ context.Context) ([]*domain.TypeDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*domain.TypeDefinition, 0, len(s.types))
	for _, def := range s.types {
		result = append(result, def.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Save stores or replaces a type.
func (s *TypeStore) Save(_ context.Context, def *domain.TypeDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types[def.ID] = def.Clone()
	return nil
}

// Delete removes a type.
func (s *TypeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.types, id)
	return nil
}
