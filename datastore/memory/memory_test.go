/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package memory_test

import (
	"context"
	"testing"

	"github.com/suparena/tablestore/datastore/memory"
	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/registry"
	"github.com/suparena/tablestore/storagemodels"
)

func newCustomerTable(t *testing.T) (*memory.TableFactory, *memory.Table, *registry.EntityType) {
	t.Helper()
	m := registry.NewModel()
	customer := m.MustAddEntityType("Customer", registry.WithKeys("ID"))
	f := memory.NewTableFactory()
	if err := f.Open(context.Background(), "test"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	table, err := f.NewTable(customer)
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	return f, table, customer
}

func TestMemoryTable(t *testing.T) {
	ctx := context.Background()

	t.Run("BasicOperations", func(t *testing.T) {
		_, table, customer := newCustomerTable(t)

		entry := &storagemodels.Entry{EntityType: customer, State: storagemodels.Added,
			Values: storagemodels.Row{"ID": "c1", "Name": "Ada"}}
		if err := table.Create(ctx, entry); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		entry.Values["Name"] = "Ada Lovelace"
		if err := table.Update(ctx, entry); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		rows, err := table.SnapshotRows(ctx)
		if err != nil {
			t.Fatalf("SnapshotRows failed: %v", err)
		}
		if len(rows) != 1 || rows[0]["Name"] != "Ada Lovelace" {
			t.Fatalf("Unexpected rows %v", rows)
		}

		if err := table.Delete(ctx, entry); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if table.Len() != 0 {
			t.Fatalf("Expected empty table, got %d rows", table.Len())
		}
	})

	t.Run("Conflicts", func(t *testing.T) {
		_, table, customer := newCustomerTable(t)
		entry := &storagemodels.Entry{EntityType: customer, Values: storagemodels.Row{"ID": "c1"}}

		if err := table.Update(ctx, entry); !errors.IsNotFound(err) {
			t.Fatalf("Expected not found on update, got %v", err)
		}
		if err := table.Delete(ctx, entry); !errors.IsNotFound(err) {
			t.Fatalf("Expected not found on delete, got %v", err)
		}
		if err := table.Create(ctx, entry); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := table.Create(ctx, entry); !errors.IsAlreadyExists(err) {
			t.Fatalf("Expected already exists, got %v", err)
		}
	})

	t.Run("MalformedEntry", func(t *testing.T) {
		_, table, customer := newCustomerTable(t)
		entry := &storagemodels.Entry{EntityType: customer, Values: storagemodels.Row{"Name": "no key"}}
		if err := table.Create(ctx, entry); !errors.IsValidationError(err) {
			t.Fatalf("Expected validation error, got %v", err)
		}
	})

	t.Run("SnapshotIsACopy", func(t *testing.T) {
		_, table, customer := newCustomerTable(t)
		values := storagemodels.Row{"ID": "c1", "Name": "Ada"}
		if err := table.Create(ctx, &storagemodels.Entry{EntityType: customer, Values: values}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		values["Name"] = "mutated by caller"

		rows, _ := table.SnapshotRows(ctx)
		rows[0]["Name"] = "mutated snapshot"

		rows, _ = table.SnapshotRows(ctx)
		if rows[0]["Name"] != "Ada" {
			t.Fatalf("Table row leaked a reference: %v", rows[0])
		}
	})

	t.Run("ClosedStore", func(t *testing.T) {
		f, table, customer := newCustomerTable(t)
		if err := f.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		err := table.Create(ctx, &storagemodels.Entry{EntityType: customer, Values: storagemodels.Row{"ID": "c1"}})
		if err != errors.ErrStoreClosed {
			t.Fatalf("Expected ErrStoreClosed, got %v", err)
		}
		if _, err := f.NewTable(customer); err != errors.ErrStoreClosed {
			t.Fatalf("Expected ErrStoreClosed from factory, got %v", err)
		}
	})
}
