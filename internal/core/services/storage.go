package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/xcmis/internal/core/domain"
	"github.com/custodia-labs/xcmis/internal/core/ports/driven"
	"github.com/custodia-labs/xcmis/internal/core/ports/driving"
	"github.com/custodia-labs/xcmis/internal/logger"
)

// Ensure Storage implements the interface.
var _ driving.Connection = (*Storage)(nil)

const (
	repositoryName    = "xCMIS"
	repositoryVendor  = "custodia-labs"
	repositoryVersion = "1.0"
	defaultUser       = "system"
)

// Storage is the CMIS storage facade over a content repository.
// Every operation runs in its own repository transaction; the index listener
// is notified once the transaction has committed.
type Storage struct {
	nodes      driven.NodeStore
	types      *TypeManager
	listener   driven.IndexListener
	search     driven.SearchEngine
	renditions *RenditionManager
	user       string
	now        func() time.Time

	repositoryID    string
	rootID          string
	workingCopiesID string
	unfiledID       string
	relationshipsID string
	policiesID      string
}

// NewStorage opens the facade over nodes, creating the system stores on
// first use.
func NewStorage(ctx context.Context, nodes driven.NodeStore, types *TypeManager) (*Storage, error) {
	s := &Storage{
		nodes: nodes,
		types: types,
		user:  defaultUser,
		now:   func() time.Time { return time.Now().UTC() },
	}
	if err := s.bootstrap(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// SetIndexListener sets the listener notified of committed changes.
func (s *Storage) SetIndexListener(l driven.IndexListener) {
	s.listener = l
}

// SetSearchEngine sets the engine used by Query.
func (s *Storage) SetSearchEngine(e driven.SearchEngine) {
	s.search = e
}

// SetRenditionManager sets the rendition manager.
func (s *Storage) SetRenditionManager(m *RenditionManager) {
	s.renditions = m
}

// SetUser sets the principal recorded in audit properties.
func (s *Storage) SetUser(user string) {
	if user != "" {
		s.user = user
	}
}

// SetClock replaces the time source of audit properties.
func (s *Storage) SetClock(now func() time.Time) {
	s.now = now
}

// Types returns the type manager.
func (s *Storage) Types() *TypeManager {
	return s.types
}

// RootFolderID returns the id of the root folder.
func (s *Storage) RootFolderID() string {
	return s.rootID
}

func (s *Storage) bootstrap(ctx context.Context) error {
	tx, err := s.nodes.Begin(ctx)
	if err != nil {
		return domain.WrapStorage(err, "beginning bootstrap")
	}
	defer func() { _ = tx.Rollback() }()

	root, err := tx.Root(ctx)
	if err != nil {
		return domain.WrapStorage(err, "loading root folder")
	}
	s.rootID = root.ID
	s.repositoryID = root.ID

	if _, ok := root.Property(domain.PropCreationDate); !ok {
		now := s.now()
		root.SetProperty(domain.NewStringProperty(domain.PropName, domain.RootFolderName))
		root.SetProperty(domain.NewStringProperty(domain.PropCreatedBy, s.user))
		root.SetProperty(domain.NewDateTimeProperty(domain.PropCreationDate, now))
		root.SetProperty(domain.NewStringProperty(domain.PropLastModifiedBy, s.user))
		root.SetProperty(domain.NewDateTimeProperty(domain.PropLastModificationDate, now))
		root.SetProperty(domain.NewStringProperty(domain.PropChangeToken, newChangeToken()))
		if err := tx.UpdateNode(ctx, root); err != nil {
			return domain.WrapStorage(err, "initialising root folder")
		}
	}

	system, err := ensureSystemNode(ctx, tx, root.ID, domain.SystemRootName)
	if err != nil {
		return err
	}
	stores := []struct {
		name string
		id   *string
	}{
		{domain.WorkingCopiesName, &s.workingCopiesID},
		{domain.UnfiledName, &s.unfiledID},
		{domain.RelationshipsName, &s.relationshipsID},
		{domain.PoliciesName, &s.policiesID},
	}
	for _, st := range stores {
		n, err := ensureSystemNode(ctx, tx, system.ID, st.name)
		if err != nil {
			return err
		}
		*st.id = n.ID
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapStorage(err, "committing bootstrap")
	}
	logger.Debug("Repository %s ready (root %s)", s.repositoryID, s.rootID)
	return nil
}

func ensureSystemNode(ctx context.Context, tx driven.NodeTx, parentID, name string) (*domain.Node, error) {
	n, err := tx.ChildByName(ctx, parentID, name)
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, domain.WrapStorage(err, "loading system store "+name)
	}
	n, err = tx.AddNode(ctx, domain.NewNode(parentID, name, domain.NodeTypeSystem))
	if err != nil {
		return nil, domain.WrapStorage(err, "creating system store "+name)
	}
	return n, nil
}

// session is the state of one facade call.
type session struct {
	s       *Storage
	tx      driven.NodeTx
	changes map[string]domain.ChangeKind
	order   []string
}

// record notes a change to report after commit. A creation followed by an
// update stays a creation; a deletion wins.
func (se *session) record(id string, kind domain.ChangeKind) {
	prev, seen := se.changes[id]
	if !seen {
		se.order = append(se.order, id)
		se.changes[id] = kind
		return
	}
	switch {
	case kind == domain.ChangeDeleted && prev == domain.ChangeCreated:
		delete(se.changes, id)
	case kind == domain.ChangeDeleted:
		se.changes[id] = kind
	case prev == domain.ChangeDeleted:
		se.changes[id] = domain.ChangeUpdated
	}
}

// events builds the change events while the transaction is still open.
func (se *session) events(ctx context.Context) []domain.ChangeEvent {
	events := make([]domain.ChangeEvent, 0, len(se.order))
	for _, id := range se.order {
		kind, ok := se.changes[id]
		if !ok {
			continue
		}
		ev := domain.ChangeEvent{Kind: kind, ObjectID: id}
		if kind != domain.ChangeDeleted {
			obj, err := se.object(ctx, id)
			if err != nil {
				logger.Debug("Skipping change event for %s: %v", id, err)
				continue
			}
			ev.Object = obj.snapshot(ctx)
			ev.Content = obj.contentStream()
			if parents, err := obj.Parents(ctx); err == nil {
				for _, p := range parents {
					ev.ParentIDs = append(ev.ParentIDs, p.ID())
				}
			}
		}
		events = append(events, ev)
	}
	return events
}

// withSession runs fn in a repository transaction. Read-only sessions are
// rolled back.
func (s *Storage) withSession(ctx context.Context, write bool, fn func(*session) error) error {
	tx, err := s.nodes.Begin(ctx)
	if err != nil {
		return domain.WrapStorage(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	se := &session{s: s, tx: tx, changes: make(map[string]domain.ChangeKind)}
	if err := fn(se); err != nil {
		return domain.WrapStorage(err, "running transaction")
	}
	if !write {
		return nil
	}

	var events []domain.ChangeEvent
	if s.listener != nil && len(se.order) > 0 {
		events = se.events(ctx)
	}
	if err := tx.Commit(); err != nil {
		return domain.WrapStorage(err, "committing transaction")
	}
	s.notify(ctx, events)
	return nil
}

func (s *Storage) notify(ctx context.Context, events []domain.ChangeEvent) {
	if s.listener == nil || len(events) == 0 {
		return
	}
	var created, updated []domain.ChangeEvent
	var removed []string
	for _, ev := range events {
		switch ev.Kind {
		case domain.ChangeCreated:
			created = append(created, ev)
		case domain.ChangeUpdated:
			updated = append(updated, ev)
		case domain.ChangeDeleted:
			removed = append(removed, ev.ObjectID)
		}
	}
	if len(created) > 0 {
		if err := s.listener.Created(ctx, created); err != nil {
			logger.Warn("Index listener failed on created objects: %v", err)
		}
	}
	if len(updated) > 0 {
		if err := s.listener.Updated(ctx, updated); err != nil {
			logger.Warn("Index listener failed on updated objects: %v", err)
		}
	}
	if len(removed) > 0 {
		if err := s.listener.Removed(ctx, removed); err != nil {
			logger.Warn("Index listener failed on removed objects: %v", err)
		}
	}
}

// RepositoryInfo describes the repository.
func (s *Storage) RepositoryInfo(_ context.Context) (*domain.RepositoryInfo, error) {
	return &domain.RepositoryInfo{
		ID:           s.repositoryID,
		Name:         repositoryName,
		RootFolderID: s.rootID,
		Vendor:       repositoryVendor,
		Version:      repositoryVersion,
	}, nil
}

func newID() string {
	return uuid.NewString()
}
