/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package tracking provides the minimal change-tracking context used to turn
// seed data into pending entries.
package tracking

import (
	"fmt"
	"sync"

	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/registry"
	"github.com/suparena/tablestore/storagemodels"
)

// Dependencies are the services a StateManager is built from.
type Dependencies struct {
	Model *registry.Model
}

// identity addresses a row across an inheritance hierarchy: rows of sibling
// types share the key space of their root type.
type identity struct {
	root *registry.EntityType
	key  string
}

// StateManager tracks entries by identity.
type StateManager struct {
	deps Dependencies

	mu      sync.Mutex
	entries []*storagemodels.Entry
	byID    map[identity][]*storagemodels.Entry
}

// NewStateManager creates a StateManager for the model in deps.
func NewStateManager(deps Dependencies) *StateManager {
	return &StateManager{
		deps: deps,
		byID: make(map[identity][]*storagemodels.Entry),
	}
}

// Model returns the model the manager tracks entries for.
func (sm *StateManager) Model() *registry.Model { return sm.deps.Model }

// CreateEntry starts tracking a Detached entry holding a copy of values.
func (sm *StateManager) CreateEntry(values map[string]any, entityType *registry.EntityType) (*storagemodels.Entry, error) {
	if entityType == nil {
		return nil, errors.NewValidationError("", "entity type is required")
	}
	if sm.deps.Model != nil && entityType.Model() != sm.deps.Model {
		return nil, errors.NewValidationError("", fmt.Sprintf("entity type %q is not part of the tracked model", entityType.Name()))
	}
	entry := &storagemodels.Entry{
		EntityType: entityType,
		State:      storagemodels.Detached,
		Values:     storagemodels.Row(values).Clone(),
	}
	key, err := entry.Key()
	if err != nil {
		return nil, err
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	id := identity{root: entityType.Root(), key: key}
	sm.byID[id] = append(sm.byID[id], entry)
	sm.entries = append(sm.entries, entry)
	return entry, nil
}

// SetEntityState changes the state of a tracked entry. Moving an entry to
// Added while another entry with the same identity is Deleted links the two
// through SharedIdentityEntry; a live entry holding the identity is a conflict.
func (sm *StateManager) SetEntityState(entry *storagemodels.Entry, state storagemodels.EntityState) error {
	key, err := entry.Key()
	if err != nil {
		return err
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	id := identity{root: entry.EntityType.Root(), key: key}
	if state == storagemodels.Added {
		for _, other := range sm.byID[id] {
			if other == entry {
				continue
			}
			switch other.State {
			case storagemodels.Deleted:
				entry.SharedIdentityEntry = other
				other.SharedIdentityEntry = entry
			case storagemodels.Added, storagemodels.Modified, storagemodels.Unchanged:
				return errors.NewAlreadyExistsError(entry.EntityType.Name(), key)
			}
		}
	}
	if state != storagemodels.Added && state != storagemodels.Deleted && entry.SharedIdentityEntry != nil {
		entry.SharedIdentityEntry.SharedIdentityEntry = nil
		entry.SharedIdentityEntry = nil
	}
	entry.State = state
	return nil
}

// Entries returns tracked entries in creation order.
func (sm *StateManager) Entries() []*storagemodels.Entry {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return append([]*storagemodels.Entry(nil), sm.entries...)
}

// PendingEntries returns tracked entries that are Added, Modified or Deleted.
func (sm *StateManager) PendingEntries() []*storagemodels.Entry {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	var out []*storagemodels.Entry
	for _, e := range sm.entries {
		switch e.State {
		case storagemodels.Added, storagemodels.Modified, storagemodels.Deleted:
			out = append(out, e)
		}
	}
	return out
}
