/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package memory provides an in-process document store backend.
package memory

import (
	"context"
	"sync"

	"github.com/suparena/tablestore/datastore"
	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/registry"
	"github.com/suparena/tablestore/storagemodels"
)

// TableFactory creates in-memory tables. Every table starts empty.
type TableFactory struct {
	mu     sync.Mutex
	name   string
	closed bool
}

// NewTableFactory creates an unbound factory.
func NewTableFactory() *TableFactory {
	return &TableFactory{}
}

// Open binds the factory to a store name. Nothing is persisted.
func (f *TableFactory) Open(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.name = name
	f.closed = false
	return nil
}

// Name returns the bound store name.
func (f *TableFactory) Name() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.name
}

// Create returns a new empty table for the entity type.
func (f *TableFactory) Create(ctx context.Context, entityType *registry.EntityType) (datastore.Table, error) {
	return f.NewTable(entityType)
}

// NewTable is like Create but returns the concrete type.
func (f *TableFactory) NewTable(entityType *registry.EntityType) (*Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, errors.ErrStoreClosed
	}
	return &Table{factory: f, entityType: entityType, rows: make(map[string]storagemodels.Row)}, nil
}

// Close marks the store closed.
func (f *TableFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *TableFactory) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Table is an in-memory implementation of datastore.Table.
type Table struct {
	factory    *TableFactory
	entityType *registry.EntityType

	mu   sync.RWMutex
	rows map[string]storagemodels.Row
}

func (t *Table) key(entry *storagemodels.Entry) (string, error) {
	if t.factory.isClosed() {
		return "", errors.ErrStoreClosed
	}
	return entry.Key()
}

// Create inserts the entry's values as a new row.
func (t *Table) Create(ctx context.Context, entry *storagemodels.Entry) error {
	key, err := t.key(entry)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.rows[key]; exists {
		return errors.NewAlreadyExistsError(t.entityType.Name(), key)
	}
	t.rows[key] = entry.Values.Clone()
	return nil
}

// Update replaces the stored row with the entry's values.
func (t *Table) Update(ctx context.Context, entry *storagemodels.Entry) error {
	key, err := t.key(entry)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.rows[key]; !exists {
		return errors.NewNotFoundError(t.entityType.Name(), key)
	}
	t.rows[key] = entry.Values.Clone()
	return nil
}

// Delete removes the row stored under the entry's key.
func (t *Table) Delete(ctx context.Context, entry *storagemodels.Entry) error {
	key, err := t.key(entry)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.rows[key]; !exists {
		return errors.NewNotFoundError(t.entityType.Name(), key)
	}
	delete(t.rows, key)
	return nil
}

// SnapshotRows returns copies of all rows ordered by key.
func (t *Table) SnapshotRows(ctx context.Context) ([]storagemodels.Row, error) {
	if t.factory.isClosed() {
		return nil, errors.ErrStoreClosed
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]storagemodels.Row, 0, len(t.rows))
	for _, r := range t.rows {
		out = append(out, r.Clone())
	}
	storagemodels.SortRows(t.entityType, out)
	return out, nil
}

// Len returns the number of stored rows.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}
