/*
Package datastore defines the contracts between the table registry and the
document stores it persists rows into.

	type TableFactory interface {
	    Open(ctx context.Context, name string) error
	    Create(ctx context.Context, entityType *registry.EntityType) (Table, error)
	    Close() error
	}

	type Table interface {
	    Create(ctx context.Context, entry *storagemodels.Entry) error
	    Update(ctx context.Context, entry *storagemodels.Entry) error
	    Delete(ctx context.Context, entry *storagemodels.Entry) error
	    SnapshotRows(ctx context.Context) ([]storagemodels.Row, error)
	}

A factory is bound to exactly one store for its lifetime. Table operations
are synchronous; Create fails with errors.ErrAlreadyExists on a duplicate key,
Update and Delete fail with errors.ErrNotFound when the row is missing, and
entries without key values fail with errors.ErrInvalidInput.

Implementations:
  - memory: rows held in process memory, gone once the table is dropped
  - sqlite: embedded document store on a single SQLite file
  - ddb: DynamoDB single-table design
  - mock: recording wrapper around memory for tests
*/
package datastore
