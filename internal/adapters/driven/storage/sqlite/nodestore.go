package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/xcmis/internal/core/domain"
	"github.com/custodia-labs/xcmis/internal/core/ports/driven"
)

// nodeStore implements driven.NodeStore.
type nodeStore struct {
	store *Store
}

var _ driven.NodeStore = (*nodeStore)(nil)

// Begin starts a transaction.
func (s *nodeStore) Begin(ctx context.Context) (driven.NodeTx, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapError(err, "beginning transaction")
	}
	return &nodeTx{
		tx:      tx,
		rootID:  s.store.rootID,
		touched: make(map[string]int64),
		added:   make(map[string]bool),
	}, nil
}

// Close is a no-op; the database is owned by Store.
func (s *nodeStore) Close() error {
	return nil
}

const nodeColumns = `id, parent_id, name, primary_type, mixins, properties,
	has_content, content_file_name, content_mime_type, content,
	revision, version_history_id, checked_in`

// nodeTx implements driven.NodeTx on a database transaction.
type nodeTx struct {
	tx      *sql.Tx
	rootID  string
	touched map[string]int64
	added   map[string]bool
}

var _ driven.NodeTx = (*nodeTx)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*domain.Node, error) {
	var n domain.Node
	var parentID, fileName, mimeType, historyID sql.NullString
	var mixinsJSON, propsJSON string
	var hasContent, checkedIn bool
	var content []byte
	if err := row.Scan(&n.ID, &parentID, &n.Name, &n.PrimaryType, &mixinsJSON, &propsJSON,
		&hasContent, &fileName, &mimeType, &content,
		&n.Revision, &historyID, &checkedIn); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(mixinsJSON), &n.Mixins); err != nil {
		return nil, fmt.Errorf("unmarshalling mixins: %w", err)
	}
	if err := json.Unmarshal([]byte(propsJSON), &n.Properties); err != nil {
		return nil, fmt.Errorf("unmarshalling properties: %w", err)
	}
	if n.Properties == nil {
		n.Properties = make(domain.Properties)
	}
	n.ParentID = parentID.String
	n.VersionHistoryID = historyID.String
	n.CheckedIn = checkedIn
	if hasContent {
		n.Content = &domain.ContentStream{FileName: fileName.String, MimeType: mimeType.String, Data: content}
	}
	n.References = make(map[string][]string)
	return &n, nil
}

func (t *nodeTx) loadReferences(ctx context.Context, n *domain.Node) error {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT name, target_id FROM node_references
		WHERE source_id = ? ORDER BY name, position
	`, n.ID)
	if err != nil {
		return fmt.Errorf("querying references: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, target string
		if err := rows.Scan(&name, &target); err != nil {
			return fmt.Errorf("scanning reference: %w", err)
		}
		n.References[name] = append(n.References[name], target)
	}
	return rows.Err()
}

func (t *nodeTx) queryNode(ctx context.Context, query string, args ...any) (*domain.Node, error) {
	n, err := scanNode(t.tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	if err := t.loadReferences(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (t *nodeTx) queryNodes(ctx context.Context, query string, args ...any) ([]*domain.Node, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "querying nodes")
	}
	var nodes []*domain.Node //nolint:prealloc // size unknown from query
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			rows.Close()
			return nil, mapError(err, "scanning node")
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, mapError(err, "iterating nodes")
	}
	rows.Close()

	for _, n := range nodes {
		if err := t.loadReferences(ctx, n); err != nil {
			return nil, mapError(err, "loading references of %s", n.ID)
		}
	}
	return nodes, nil
}

func (t *nodeTx) Root(ctx context.Context) (*domain.Node, error) {
	return t.Node(ctx, t.rootID)
}

func (t *nodeTx) Node(ctx context.Context, id string) (*domain.Node, error) {
	n, err := t.queryNode(ctx, "SELECT "+nodeColumns+" FROM nodes WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("node %s not found", id)
	}
	if err != nil {
		return nil, mapError(err, "getting node %s", id)
	}
	return n, nil
}

func (t *nodeTx) ChildByName(ctx context.Context, parentID, name string) (*domain.Node, error) {
	n, err := t.queryNode(ctx, "SELECT "+nodeColumns+" FROM nodes WHERE parent_id = ? AND name = ?", parentID, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("no child %q in %s", name, parentID)
	}
	if err != nil {
		return nil, mapError(err, "getting child %q of %s", name, parentID)
	}
	return n, nil
}

func (t *nodeTx) Children(ctx context.Context, parentID string) ([]*domain.Node, error) {
	return t.queryNodes(ctx, "SELECT "+nodeColumns+" FROM nodes WHERE parent_id = ? ORDER BY name", parentID)
}

func (t *nodeTx) ReferencesTo(ctx context.Context, targetID string) ([]domain.Reference, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT DISTINCT source_id, name FROM node_references
		WHERE target_id = ? ORDER BY source_id, name
	`, targetID)
	if err != nil {
		return nil, mapError(err, "querying references to %s", targetID)
	}
	defer rows.Close()

	var refs []domain.Reference
	for rows.Next() {
		var ref domain.Reference
		if err := rows.Scan(&ref.SourceID, &ref.Name); err != nil {
			return nil, mapError(err, "scanning reference")
		}
		refs = append(refs, ref)
	}
	return refs, mapError(rows.Err(), "iterating references")
}

func (t *nodeTx) NodeByVersionHistory(ctx context.Context, historyID string) (*domain.Node, error) {
	n, err := t.queryNode(ctx, "SELECT "+nodeColumns+" FROM nodes WHERE version_history_id = ? LIMIT 1", historyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("version history %s not found", historyID)
	}
	if err != nil {
		return nil, mapError(err, "getting node of history %s", historyID)
	}
	return n, nil
}

func (t *nodeTx) writeReferences(ctx context.Context, n *domain.Node) error {
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM node_references WHERE source_id = ?", n.ID); err != nil {
		return err
	}
	for name, targets := range n.References {
		for i, target := range targets {
			if _, err := t.tx.ExecContext(ctx, `
				INSERT INTO node_references (source_id, name, position, target_id)
				VALUES (?, ?, ?, ?)
			`, n.ID, name, i, target); err != nil {
				return err
			}
		}
	}
	return nil
}

func encodeNode(n *domain.Node) (mixins, props string, err error) {
	mixinsJSON, err := json.Marshal(n.Mixins)
	if err != nil {
		return "", "", fmt.Errorf("marshalling mixins: %w", err)
	}
	if n.Mixins == nil {
		mixinsJSON = []byte("[]")
	}
	propsJSON, err := json.Marshal(n.Properties)
	if err != nil {
		return "", "", fmt.Errorf("marshalling properties: %w", err)
	}
	return string(mixinsJSON), string(propsJSON), nil
}

func contentColumns(c *domain.ContentStream) (bool, sql.NullString, sql.NullString, []byte) {
	if c == nil {
		return false, sql.NullString{}, sql.NullString{}, nil
	}
	return true, nullString(c.FileName), nullString(c.MimeType), c.Data
}

func (t *nodeTx) AddNode(ctx context.Context, n *domain.Node) (*domain.Node, error) {
	if n.ParentID == "" {
		return nil, domain.InvalidArgumentf("node %q has no parent", n.Name)
	}
	if n.Name == "" {
		return nil, domain.InvalidArgumentf("node name is required")
	}
	if _, err := t.Node(ctx, n.ParentID); err != nil {
		return nil, err
	}
	if _, err := t.ChildByName(ctx, n.ParentID, n.Name); err == nil {
		return nil, domain.NameConstraintf("an object named %q already exists in %s", n.Name, n.ParentID)
	}

	c := n.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.HasMixin(domain.MixinVersionable) && c.VersionHistoryID == "" {
		c.VersionHistoryID = uuid.NewString()
	}
	c.Revision = 1
	c.CheckedIn = false

	mixins, props, err := encodeNode(c)
	if err != nil {
		return nil, err
	}
	hasContent, fileName, mimeType, data := contentColumns(c.Content)
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO nodes (id, parent_id, name, primary_type, mixins, properties,
			has_content, content_file_name, content_mime_type, content,
			revision, version_history_id, checked_in)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, 0)
	`, c.ID, c.ParentID, c.Name, c.PrimaryType, mixins, props,
		hasContent, fileName, mimeType, data, nullString(c.VersionHistoryID))
	if err != nil {
		return nil, mapError(err, "adding node %q", c.Name)
	}
	if err := t.writeReferences(ctx, c); err != nil {
		return nil, mapError(err, "writing references of %s", c.ID)
	}

	t.added[c.ID] = true
	return c, nil
}

// touch records the revision a committed node had when first changed.
func (t *nodeTx) touch(n *domain.Node) {
	if t.added[n.ID] {
		return
	}
	if _, ok := t.touched[n.ID]; !ok {
		t.touched[n.ID] = n.Revision
	}
}

func (t *nodeTx) UpdateNode(ctx context.Context, n *domain.Node) error {
	cur, err := t.Node(ctx, n.ID)
	if err != nil {
		return err
	}
	if cur.CheckedIn {
		return domain.Versioningf("node %s is checked in", n.ID)
	}
	if n.Revision != cur.Revision {
		return domain.UpdateConflictf("node %s was changed (revision %d, have %d)", n.ID, cur.Revision, n.Revision)
	}

	mixins, props, err := encodeNode(n)
	if err != nil {
		return err
	}
	hasContent, fileName, mimeType, data := contentColumns(n.Content)
	_, err = t.tx.ExecContext(ctx, `
		UPDATE nodes SET primary_type = ?, mixins = ?, properties = ?,
			has_content = ?, content_file_name = ?, content_mime_type = ?, content = ?
		WHERE id = ?
	`, n.PrimaryType, mixins, props, hasContent, fileName, mimeType, data, n.ID)
	if err != nil {
		return mapError(err, "updating node %s", n.ID)
	}
	if err := t.writeReferences(ctx, n); err != nil {
		return mapError(err, "writing references of %s", n.ID)
	}

	t.touch(cur)
	return nil
}

func (t *nodeTx) MoveNode(ctx context.Context, id, newParentID, newName string) error {
	if id == t.rootID {
		return domain.Constraintf("root folder cannot be moved")
	}
	cur, err := t.Node(ctx, id)
	if err != nil {
		return err
	}
	if _, err := t.Node(ctx, newParentID); err != nil {
		return err
	}

	var cycle bool
	err = t.tx.QueryRowContext(ctx, `
		WITH RECURSIVE ancestors(id, parent_id) AS (
			SELECT id, parent_id FROM nodes WHERE id = ?
			UNION ALL
			SELECT n.id, n.parent_id FROM nodes n JOIN ancestors a ON n.id = a.parent_id
		)
		SELECT EXISTS (SELECT 1 FROM ancestors WHERE id = ?)
	`, newParentID, id).Scan(&cycle)
	if err != nil {
		return mapError(err, "checking ancestors of %s", newParentID)
	}
	if cycle {
		return domain.Constraintf("cannot move %s into its own subtree", id)
	}

	if newName == "" {
		newName = cur.Name
	}
	if other, err := t.ChildByName(ctx, newParentID, newName); err == nil && other.ID != id {
		return domain.NameConstraintf("an object named %q already exists in %s", newName, newParentID)
	}

	if _, err := t.tx.ExecContext(ctx, "UPDATE nodes SET parent_id = ?, name = ? WHERE id = ?",
		newParentID, newName, id); err != nil {
		return mapError(err, "moving node %s", id)
	}
	t.touch(cur)
	return nil
}

const subtreeCTE = `
	WITH RECURSIVE subtree(id) AS (
		SELECT ?
		UNION ALL
		SELECT n.id FROM nodes n JOIN subtree s ON n.parent_id = s.id
	)`

func (t *nodeTx) RemoveNode(ctx context.Context, id string) error {
	if id == t.rootID {
		return domain.Constraintf("root folder cannot be removed")
	}
	if _, err := t.Node(ctx, id); err != nil {
		return err
	}

	var target, source string
	err := t.tx.QueryRowContext(ctx, subtreeCTE+`
		SELECT r.target_id, r.source_id FROM node_references r
		WHERE r.target_id IN (SELECT id FROM subtree)
		  AND r.source_id NOT IN (SELECT id FROM subtree)
		LIMIT 1
	`, id).Scan(&target, &source)
	switch {
	case err == nil:
		return domain.Constraintf("node %s is referenced by %s", target, source)
	case !errors.Is(err, sql.ErrNoRows):
		return mapError(err, "checking references into %s", id)
	}

	rows, err := t.tx.QueryContext(ctx, subtreeCTE+" SELECT id FROM subtree", id)
	if err != nil {
		return mapError(err, "listing subtree of %s", id)
	}
	var ids []string
	for rows.Next() {
		var sub string
		if err := rows.Scan(&sub); err != nil {
			rows.Close()
			return mapError(err, "scanning subtree")
		}
		ids = append(ids, sub)
	}
	rows.Close()

	for i := len(ids) - 1; i >= 0; i-- {
		if _, err := t.tx.ExecContext(ctx, "DELETE FROM nodes WHERE id = ?", ids[i]); err != nil {
			return mapError(err, "removing node %s", ids[i])
		}
		delete(t.touched, ids[i])
		delete(t.added, ids[i])
	}
	return nil
}

func (t *nodeTx) Checkin(ctx context.Context, id string) (*domain.NodeVersion, error) {
	cur, err := t.Node(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cur.HasMixin(domain.MixinVersionable) {
		return nil, domain.Constraintf("node %s is not versionable", id)
	}
	if cur.CheckedIn {
		return nil, domain.Versioningf("node %s is already checked in", id)
	}

	var seq int
	if err := t.tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) FROM versions WHERE history_id = ?", cur.VersionHistoryID,
	).Scan(&seq); err != nil {
		return nil, mapError(err, "counting versions of %s", id)
	}
	seq++

	frozen := cur.Clone()
	frozen.CheckedIn = true
	v := &domain.NodeVersion{
		ID:        uuid.NewString(),
		HistoryID: cur.VersionHistoryID,
		Name:      strconv.Itoa(seq),
		Created:   time.Now().UTC(),
		Frozen:    frozen,
	}
	frozenJSON, err := json.Marshal(frozen)
	if err != nil {
		return nil, fmt.Errorf("marshalling frozen node: %w", err)
	}
	var content []byte
	if frozen.Content != nil {
		content = frozen.Content.Data
	}
	if _, err := t.tx.ExecContext(ctx, `
		INSERT INTO versions (id, history_id, name, seq, created_at, frozen, content)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, v.ID, v.HistoryID, v.Name, seq, v.Created, string(frozenJSON), content); err != nil {
		return nil, mapError(err, "storing version of %s", id)
	}
	if _, err := t.tx.ExecContext(ctx, "UPDATE nodes SET checked_in = 1 WHERE id = ?", id); err != nil {
		return nil, mapError(err, "checking in %s", id)
	}
	t.touch(cur)
	return v, nil
}

func (t *nodeTx) Checkout(ctx context.Context, id string) error {
	cur, err := t.Node(ctx, id)
	if err != nil {
		return err
	}
	if !cur.CheckedIn {
		return domain.Versioningf("node %s is not checked in", id)
	}
	if _, err := t.tx.ExecContext(ctx, "UPDATE nodes SET checked_in = 0 WHERE id = ?", id); err != nil {
		return mapError(err, "checking out %s", id)
	}
	t.touch(cur)
	return nil
}

const versionColumns = "id, history_id, name, created_at, frozen, content"

func scanVersion(row rowScanner) (*domain.NodeVersion, error) {
	var v domain.NodeVersion
	var created sql.NullTime
	var frozenJSON string
	var content []byte
	if err := row.Scan(&v.ID, &v.HistoryID, &v.Name, &created, &frozenJSON, &content); err != nil {
		return nil, err
	}
	if created.Valid {
		v.Created = created.Time
	}
	if err := json.Unmarshal([]byte(frozenJSON), &v.Frozen); err != nil {
		return nil, fmt.Errorf("unmarshalling frozen node: %w", err)
	}
	if v.Frozen.Content != nil {
		v.Frozen.Content.Data = content
	}
	if v.Frozen.Properties == nil {
		v.Frozen.Properties = make(domain.Properties)
	}
	return &v, nil
}

func (t *nodeTx) VersionHistory(ctx context.Context, historyID string) ([]*domain.NodeVersion, error) {
	rows, err := t.tx.QueryContext(ctx,
		"SELECT "+versionColumns+" FROM versions WHERE history_id = ? ORDER BY seq", historyID)
	if err != nil {
		return nil, mapError(err, "querying versions of %s", historyID)
	}
	defer rows.Close()

	var versions []*domain.NodeVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, mapError(err, "scanning version")
		}
		versions = append(versions, v)
	}
	return versions, mapError(rows.Err(), "iterating versions")
}

func (t *nodeTx) Version(ctx context.Context, versionID string) (*domain.NodeVersion, error) {
	v, err := scanVersion(t.tx.QueryRowContext(ctx,
		"SELECT "+versionColumns+" FROM versions WHERE id = ?", versionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("version %s not found", versionID)
	}
	if err != nil {
		return nil, mapError(err, "getting version %s", versionID)
	}
	return v, nil
}

func (t *nodeTx) RemoveVersionHistory(ctx context.Context, historyID string) error {
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM versions WHERE history_id = ?", historyID); err != nil {
		return mapError(err, "removing versions of %s", historyID)
	}
	return nil
}

func (t *nodeTx) Commit() error {
	for id, base := range t.touched {
		res, err := t.tx.Exec("UPDATE nodes SET revision = revision + 1 WHERE id = ? AND revision = ?", id, base)
		if err != nil {
			_ = t.tx.Rollback()
			return mapError(err, "bumping revision of %s", id)
		}
		if n, err := res.RowsAffected(); err != nil || n == 0 {
			_ = t.tx.Rollback()
			return domain.UpdateConflictf("node %s was changed by another transaction", id)
		}
	}
	if err := t.tx.Commit(); err != nil {
		return mapError(err, "committing transaction")
	}
	return nil
}

func (t *nodeTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return mapError(err, "rolling back transaction")
	}
	return nil
}

// nullString converts an empty string to a NULL column value.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
