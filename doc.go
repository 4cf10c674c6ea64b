/*
Package tablestore bridges a change-tracking layer and an embedded document
store. It keeps, per entity type, a table of persisted rows and applies
batches of pending insert, update and delete entries as one locked unit.

The core type is Store, the table registry:
  - Tables are created lazily, one per concrete entity type
  - Tables are keyed by entity type identity, or by name with WithNameMatching
  - EnsureCreated materializes the registry and inserts seed data exactly once
  - GetTables returns copies of the rows of a type and of its concrete subtypes
  - ExecuteTransaction dispatches Added, Modified and Deleted entries
  - Clear drops the table cache without touching the underlying store

Basic Usage:

	factory := sqlite.NewTableFactory()
	store, err := tablestore.New(ctx, factory, "app.db", tablestore.WithNameMatching(true))
	if err != nil {
	    return err
	}
	defer store.Close()

	// Seed the store from the model
	created, err := store.EnsureCreated(ctx, tracking.Dependencies{Model: model}, logger)

	// Apply pending changes
	n, err := store.ExecuteTransaction(ctx, []*storagemodels.Entry{{
	    EntityType: customer,
	    State:      storagemodels.Added,
	    Values:     storagemodels.Row{"ID": "c2", "Name": "Grace"},
	}}, logger)

	// Read rows of Customer and its subtypes
	snapshots, err := store.GetTables(ctx, customer)

Backends live under datastore/: memory, sqlite, ddb (DynamoDB) and mock.
Loggers implementing UpdateLogger, including Prometheus metrics, live in
diagnostics/.
*/
package tablestore
