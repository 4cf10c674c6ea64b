/*
Package storagemodels defines the data structures exchanged between the table
registry, its callers and the storage backends.

Key Types:

Entry:
A pending change produced by the change-tracking layer:

	entry := &storagemodels.Entry{
	    EntityType: customer,
	    State:      storagemodels.Added,
	    Values:     storagemodels.Row{"ID": "c2", "Name": "Grace"},
	}

EntityState is a closed set (Detached, Unchanged, Deleted, Modified, Added);
the registry dispatches Added, Modified and Deleted entries and ignores the
others.

TableSnapshot:
A copy of the rows of one table, paired with its entity type. Snapshots are
created on every request and can be read without holding any lock.

ScanOptions:
Configuration for backends that page through remote tables:

	opts := []ScanOption{
	    WithPageSize(25),
	    WithMaxRetries(3),
	    WithProgressHandler(progressFunc),
	}
*/
package storagemodels
