/*
Package ddb provides a DynamoDB backend for the table registry.

All entity types share one DynamoDB table (single-table design). The store
name given to the registry is the DynamoDB table name; Open creates the table
with string PK and SK keys when it does not exist.

Each row becomes an item holding the row's fields, an EntityType attribute and
the keys expanded from the entity type's index map:

	indexMap := map[string]string{
	    "PK": "USER#{ID}",        // Becomes "USER#123"
	    "SK": "PROFILE",          // Static value
	}

Types without an index map use "<NAME>#{key1}#{key2}" for both PK and SK.

Create, Update and Delete are conditional writes, so a duplicate key surfaces
as errors.ErrAlreadyExists and a missing row as errors.ErrNotFound.

Snapshots scan the items of one entity type page by page, retrying throttled
requests:

	factory := ddb.NewTableFactory(client, ddb.WithScanOptions(
	    storagemodels.WithPageSize(25),
	    storagemodels.WithMaxRetries(3),
	    storagemodels.WithProgressHandler(func(p storagemodels.ScanProgress) {
	        slog.Debug("scan", "type", p.EntityType, "items", p.ItemsProcessed)
	    }),
	))
*/
package ddb
