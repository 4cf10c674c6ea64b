/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/tablestore/registry"
	"github.com/suparena/tablestore/storagemodels"
)

// Table holds the rows of one concrete entity type inside an open store.
type Table interface {
	Create(ctx context.Context, entry *storagemodels.Entry) error

	Update(ctx context.Context, entry *storagemodels.Entry) error

	Delete(ctx context.Context, entry *storagemodels.Entry) error

	// SnapshotRows returns a copy of the current rows ordered by key.
	SnapshotRows(ctx context.Context) ([]storagemodels.Row, error)
}

// TableFactory opens the underlying store and builds tables bound to it.
type TableFactory interface {
	// Open opens, or creates, the store identified by name and binds the factory to it.
	Open(ctx context.Context, name string) error

	Create(ctx context.Context, entityType *registry.EntityType) (Table, error)

	// Close releases the store handle. Tables built before Close must not be used afterwards.
	Close() error
}
