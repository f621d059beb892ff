package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/xcmis/internal/core/domain"
	"github.com/custodia-labs/xcmis/internal/core/ports/driven"
)

// typeStore implements driven.TypeStore.
type typeStore struct {
	store *Store
}

var _ driven.TypeStore = (*typeStore)(nil)

// Get retrieves a type by ID.
func (s *typeStore) Get(ctx context.Context, id string) (*domain.TypeDefinition, error) {
	var definition string
	err := s.store.db.QueryRowContext(ctx, "SELECT definition FROM types WHERE id = ?", id).Scan(&definition)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.TypeNotFoundf("type %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting type: %w", err)
	}
	return decodeType(definition)
}

// List returns all stored types ordered by ID.
func (s *typeStore) List(ctx context.Context) ([]*domain.TypeDefinition, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT definition FROM types ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying types: %w", err)
	}
	defer rows.Close()

	var defs []*domain.TypeDefinition //nolint:prealloc // size unknown from query
	for rows.Next() {
		var definition string
		if err := rows.Scan(&definition); err != nil {
			return nil, fmt.Errorf("scanning type: %w", err)
		}
		def, err := decodeType(definition)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating types: %w", err)
	}
	return defs, nil
}

// Save stores or replaces a type.
func (s *typeStore) Save(ctx context.Context, def *domain.TypeDefinition) error {
	definition, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshalling type: %w", err)
	}
	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO types (id, parent_id, base_type, definition)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			parent_id = excluded.parent_id,
			base_type = excluded.base_type,
			definition = excluded.definition
	`, def.ID, nullString(def.ParentID), string(def.BaseType), string(definition))
	if err != nil {
		return fmt.Errorf("saving type: %w", err)
	}
	return nil
}

// Delete removes a type.
func (s *typeStore) Delete(ctx context.Context, id string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM types WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting type: %w", err)
	}
	return nil
}

func decodeType(definition string) (*domain.TypeDefinition, error) {
	var def domain.TypeDefinition
	if err := json.Unmarshal([]byte(definition), &def); err != nil {
		return nil, fmt.Errorf("unmarshalling type: %w", err)
	}
	return &def, nil
}
