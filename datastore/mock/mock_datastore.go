/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides a recording TableFactory for testing
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/suparena/tablestore/datastore"
	"github.com/suparena/tablestore/datastore/memory"
	"github.com/suparena/tablestore/registry"
	"github.com/suparena/tablestore/storagemodels"
)

// Op names a table operation recorded by the mock
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Call is one recorded table operation
type Call struct {
	Op         Op
	EntityType string
	Key        string
}

func (c Call) String() string {
	return fmt.Sprintf("%s %s{%s}", c.Op, c.EntityType, c.Key)
}

// TableFactory is a mock datastore.TableFactory backed by in-memory tables
type TableFactory struct {
	inner *memory.TableFactory

	mu          sync.Mutex
	name        string
	opens       int
	closes      int
	created     []string
	calls       []Call
	snapshots   int
	openError   error
	createError error
	updateError error
	deleteError error
	tableError  error
	failAfter   int
	failError   error
}

// NewTableFactory creates a new mock TableFactory
func NewTableFactory() *TableFactory {
	return &TableFactory{inner: memory.NewTableFactory(), failAfter: -1}
}

// WithOpenError makes Open return an error
func (f *TableFactory) WithOpenError(err error) *TableFactory {
	f.openError = err
	return f
}

// WithTableError makes factory Create return an error
func (f *TableFactory) WithTableError(err error) *TableFactory {
	f.tableError = err
	return f
}

// WithCreateError makes Table.Create operations return an error
func (f *TableFactory) WithCreateError(err error) *TableFactory {
	f.createError = err
	return f
}

// WithUpdateError makes Table.Update operations return an error
func (f *TableFactory) WithUpdateError(err error) *TableFactory {
	f.updateError = err
	return f
}

// WithDeleteError makes Table.Delete operations return an error
func (f *TableFactory) WithDeleteError(err error) *TableFactory {
	f.deleteError = err
	return f
}

// FailAfter makes every table operation after the first n successful ones return err
func (f *TableFactory) FailAfter(n int, err error) *TableFactory {
	f.failAfter = n
	f.failError = err
	return f
}

// Open records the store name
func (f *TableFactory) Open(ctx context.Context, name string) error {
	f.mu.Lock()
	f.opens++
	f.name = name
	f.mu.Unlock()
	if f.openError != nil {
		return f.openError
	}
	return f.inner.Open(ctx, name)
}

// Create builds a recording table for the entity type
func (f *TableFactory) Create(ctx context.Context, entityType *registry.EntityType) (datastore.Table, error) {
	if f.tableError != nil {
		return nil, f.tableError
	}
	inner, err := f.inner.NewTable(entityType)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.created = append(f.created, entityType.Name())
	f.mu.Unlock()
	return &table{factory: f, inner: inner}, nil
}

// Close closes the in-memory store
func (f *TableFactory) Close() error {
	f.mu.Lock()
	f.closes++
	f.mu.Unlock()
	return f.inner.Close()
}

// Helper methods for testing

// Name returns the store name passed to Open
func (f *TableFactory) Name() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.name
}

// Opens returns the number of Open calls
func (f *TableFactory) Opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

// Closes returns the number of Close calls
func (f *TableFactory) Closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

// CreatedTables returns the entity type names of every table created, in order
func (f *TableFactory) CreatedTables() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.created...)
}

// Calls returns a copy of the recorded table operations
func (f *TableFactory) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Snapshots returns the number of SnapshotRows calls
func (f *TableFactory) Snapshots() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshots
}

// Reset forgets recorded calls and created tables
func (f *TableFactory) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
	f.created = nil
	f.snapshots = 0
}

// record logs the call and returns the injected error for it, if any
func (f *TableFactory) record(op Op, entry *storagemodels.Entry, injected error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAfter >= 0 && len(f.calls) >= f.failAfter {
		return f.failError
	}
	if injected != nil {
		return injected
	}
	name := ""
	if entry.EntityType != nil {
		name = entry.EntityType.Name()
	}
	key, _ := entry.Key()
	f.calls = append(f.calls, Call{Op: op, EntityType: name, Key: key})
	return nil
}

type table struct {
	factory *TableFactory
	inner   *memory.Table
}

func (t *table) Create(ctx context.Context, entry *storagemodels.Entry) error {
	if err := t.factory.record(OpCreate, entry, t.factory.createError); err != nil {
		return err
	}
	return t.inner.Create(ctx, entry)
}

func (t *table) Update(ctx context.Context, entry *storagemodels.Entry) error {
	if err := t.factory.record(OpUpdate, entry, t.factory.updateError); err != nil {
		return err
	}
	return t.inner.Update(ctx, entry)
}

func (t *table) Delete(ctx context.Context, entry *storagemodels.Entry) error {
	if err := t.factory.record(OpDelete, entry, t.factory.deleteError); err != nil {
		return err
	}
	return t.inner.Delete(ctx, entry)
}

func (t *table) SnapshotRows(ctx context.Context) ([]storagemodels.Row, error) {
	t.factory.mu.Lock()
	t.factory.snapshots++
	t.factory.mu.Unlock()
	return t.inner.SnapshotRows(ctx)
}
