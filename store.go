/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablestore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/suparena/tablestore/datastore"
	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/registry"
	"github.com/suparena/tablestore/storagemodels"
	"github.com/suparena/tablestore/tracking"
)

// UpdateLogger receives the outcome of every applied transaction.
type UpdateLogger interface {
	ChangesSaved(entries []*storagemodels.Entry, rowsAffected int)
}

// Option configures a Store.
type Option func(*Store)

// WithNameMatching keys tables by entity type name instead of entity type identity.
func WithNameMatching(useNameMatching bool) Option {
	return func(s *Store) { s.useNameMatching = useNameMatching }
}

// WithLogger sets the logger used for table lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.log = logger }
}

// tableKey identifies a table. Exactly one of the fields is set, depending on
// the store's keying mode.
type tableKey struct {
	entityType *registry.EntityType
	name       string
}

// Store is the table registry: it maps entity types to the tables of one
// underlying document store and applies batches of pending entries to them.
// All operations are serialized by a single mutex.
type Store struct {
	factory         datastore.TableFactory
	name            string
	useNameMatching bool
	log             *slog.Logger

	mu sync.Mutex
	// tables is nil until the mapping is materialized.
	tables map[tableKey]datastore.Table
}

// New opens, or creates, the store identified by name through factory and
// returns a registry bound to it. No table is created until first use.
func New(ctx context.Context, factory datastore.TableFactory, name string, opts ...Option) (*Store, error) {
	s := &Store{
		factory: factory,
		name:    name,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := factory.Open(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to open store %q: %w", name, err)
	}
	return s, nil
}

// Name returns the store name the registry was opened with.
func (s *Store) Name() string { return s.name }

// Materialized reports whether the table mapping currently exists.
func (s *Store) Materialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables != nil
}

// EnsureCreated materializes the table mapping and inserts the seed data of
// every entity type in deps.Model. It returns true only for the call that
// materialized the mapping; later calls, and calls made after another
// operation already materialized it, return false and do not seed.
func (s *Store) EnsureCreated(ctx context.Context, deps tracking.Dependencies, logger UpdateLogger) (bool, error) {
	if deps.Model == nil {
		return false, errors.NewValidationError("Model", "state manager dependencies carry no model")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.materialize() {
		return false, nil
	}

	stateManager := tracking.NewStateManager(deps)
	var entries []*storagemodels.Entry
	for _, entityType := range deps.Model.EntityTypes() {
		for _, seed := range entityType.SeedData() {
			entry, err := stateManager.CreateEntry(seed, entityType)
			if err != nil {
				return true, fmt.Errorf("seed %s: %w", entityType.Name(), err)
			}
			if err := stateManager.SetEntityState(entry, storagemodels.Added); err != nil {
				return true, fmt.Errorf("seed %s: %w", entityType.Name(), err)
			}
			entries = append(entries, entry)
		}
	}

	s.log.Debug("seeding store", "store", s.name, "entries", len(entries))
	if _, err := s.executeTransaction(ctx, entries, logger); err != nil {
		return true, fmt.Errorf("seed store %q: %w", s.name, err)
	}
	return true, nil
}

// Clear drops every table of the registry. It returns false when the mapping
// was never materialized. The underlying store is left untouched.
func (s *Store) Clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tables == nil {
		return false
	}
	s.tables = nil
	s.log.Debug("tables cleared", "store", s.name)
	return true
}

// GetTables returns snapshots of the table for entityType and of the tables
// of its concrete derived types. The table for entityType itself is created
// if missing, even when it is abstract; derived types without a table are
// skipped. A nil entityType panics.
func (s *Store) GetTables(ctx context.Context, entityType *registry.EntityType) ([]storagemodels.TableSnapshot, error) {
	if entityType == nil {
		panic(errors.NewPreconditionError("GetTables", "entity type is nil"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.tableFor(ctx, entityType); err != nil {
		return nil, err
	}

	var data []storagemodels.TableSnapshot
	for _, et := range entityType.ConcreteDerivedTypesInclusive() {
		table, ok := s.tables[s.keyFor(et)]
		if !ok {
			continue
		}
		rows, err := table.SnapshotRows(ctx)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", et.Name(), err)
		}
		data = append(data, storagemodels.TableSnapshot{EntityType: et, Rows: rows})
	}
	return data, nil
}

// ExecuteTransaction applies entries to their tables while holding the
// registry lock and returns the number of entries applied. Every entry must
// have a concrete entity type; an abstract one is a caller bug and panics.
//
// There is no rollback: when a table operation fails, rows changed by earlier
// entries stay changed, the count applied so far is returned with the error
// and logger is not notified.
func (s *Store) ExecuteTransaction(ctx context.Context, entries []*storagemodels.Entry, logger UpdateLogger) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.executeTransaction(ctx, entries, logger)
}

func (s *Store) executeTransaction(ctx context.Context, entries []*storagemodels.Entry, logger UpdateLogger) (int, error) {
	rowsAffected := 0

	for _, entry := range entries {
		if entry == nil || entry.EntityType == nil {
			panic(errors.NewPreconditionError("ExecuteTransaction", "entry has no entity type"))
		}
		if entry.EntityType.IsAbstract() {
			panic(errors.NewPreconditionError("ExecuteTransaction",
				fmt.Sprintf("entity type %s is abstract", entry.EntityType.Name())))
		}

		table, err := s.tableFor(ctx, entry.EntityType)
		if err != nil {
			return rowsAffected, err
		}

		if entry.SharedIdentityEntry != nil {
			if entry.State == storagemodels.Deleted {
				continue
			}
			if err := table.Delete(ctx, entry); err != nil {
				return rowsAffected, fmt.Errorf("clear shared identity of %s: %w", entry, err)
			}
		}

		switch entry.State {
		case storagemodels.Added:
			err = table.Create(ctx, entry)
		case storagemodels.Deleted:
			err = table.Delete(ctx, entry)
		case storagemodels.Modified:
			err = table.Update(ctx, entry)
		default:
			continue
		}
		if err != nil {
			return rowsAffected, fmt.Errorf("apply %s: %w", entry, err)
		}

		rowsAffected++
	}

	if logger != nil {
		logger.ChangesSaved(entries, rowsAffected)
	}
	return rowsAffected, nil
}

// Close closes the underlying store. The registry must not be used afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tables = nil
	return s.factory.Close()
}

func (s *Store) keyFor(entityType *registry.EntityType) tableKey {
	if s.useNameMatching {
		return tableKey{name: entityType.Name()}
	}
	return tableKey{entityType: entityType}
}

// materialize allocates the table mapping if needed and reports whether it did.
// The caller holds s.mu.
func (s *Store) materialize() bool {
	if s.tables != nil {
		return false
	}
	s.tables = make(map[tableKey]datastore.Table)
	return true
}

// tableFor returns the table for entityType, creating it on first use.
// The caller holds s.mu.
func (s *Store) tableFor(ctx context.Context, entityType *registry.EntityType) (datastore.Table, error) {
	s.materialize()

	key := s.keyFor(entityType)
	if table, ok := s.tables[key]; ok {
		return table, nil
	}
	table, err := s.factory.Create(ctx, entityType)
	if err != nil {
		return nil, fmt.Errorf("create table for %s: %w", entityType.Name(), err)
	}
	s.tables[key] = table
	s.log.Debug("table created", "store", s.name, "entity_type", entityType.Name())
	return table, nil
}
