/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/registry"
	"github.com/suparena/tablestore/storagemodels"
)

func customerType() *registry.EntityType {
	m := registry.NewModel()
	return m.MustAddEntityType("Customer", registry.WithKeys("ID"))
}

func openFactory(t *testing.T, name string) *TableFactory {
	t.Helper()
	f := NewTableFactory()
	if err := f.Open(context.Background(), name); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestSQLiteTable(t *testing.T) {
	ctx := context.Background()
	customer := customerType()

	t.Run("CRUD", func(t *testing.T) {
		f := openFactory(t, MemoryName)
		table, err := f.Create(ctx, customer)
		if err != nil {
			t.Fatalf("Create table failed: %v", err)
		}

		entry := &storagemodels.Entry{EntityType: customer, Values: storagemodels.Row{"ID": "c2", "Name": "Grace", "Age": 85}}
		if err := table.Create(ctx, entry); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := table.Create(ctx, &storagemodels.Entry{EntityType: customer, Values: storagemodels.Row{"ID": "c1", "Name": "Ada"}}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := table.Create(ctx, entry); !errors.IsAlreadyExists(err) {
			t.Fatalf("Expected already exists, got %v", err)
		}

		entry.Values["Name"] = "Grace Hopper"
		if err := table.Update(ctx, entry); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		rows, err := table.SnapshotRows(ctx)
		if err != nil {
			t.Fatalf("SnapshotRows failed: %v", err)
		}
		if len(rows) != 2 || rows[0]["ID"] != "c1" || rows[1]["Name"] != "Grace Hopper" {
			t.Fatalf("Unexpected rows %v", rows)
		}
		// JSON documents decode numbers as float64.
		if rows[1]["Age"] != float64(85) {
			t.Fatalf("Expected Age 85, got %#v", rows[1]["Age"])
		}

		if err := table.Delete(ctx, entry); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := table.Delete(ctx, entry); !errors.IsNotFound(err) {
			t.Fatalf("Expected not found, got %v", err)
		}
		if err := table.Update(ctx, entry); !errors.IsNotFound(err) {
			t.Fatalf("Expected not found, got %v", err)
		}
	})

	t.Run("MalformedEntry", func(t *testing.T) {
		f := openFactory(t, MemoryName)
		table, _ := f.Create(ctx, customer)
		err := table.Create(ctx, &storagemodels.Entry{EntityType: customer, Values: storagemodels.Row{"Name": "no key"}})
		if !errors.IsValidationError(err) {
			t.Fatalf("Expected validation error, got %v", err)
		}
		err = table.Create(ctx, &storagemodels.Entry{EntityType: customer, Values: storagemodels.Row{"ID": "x", "Bad": make(chan int)}})
		if !errors.IsValidationError(err) {
			t.Fatalf("Expected validation error for unencodable value, got %v", err)
		}
	})

	t.Run("PersistsAcrossOpen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "store.db")
		f := NewTableFactory()
		if err := f.Open(ctx, path); err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		table, _ := f.Create(ctx, customer)
		if err := table.Create(ctx, &storagemodels.Entry{EntityType: customer, Values: storagemodels.Row{"ID": "c1"}}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := f.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if _, err := table.SnapshotRows(ctx); err != errors.ErrStoreClosed {
			t.Fatalf("Expected ErrStoreClosed, got %v", err)
		}

		reopened := openFactory(t, path)
		table, _ = reopened.Create(ctx, customer)
		rows, err := table.SnapshotRows(ctx)
		if err != nil || len(rows) != 1 {
			t.Fatalf("Expected 1 persisted row, got %v (%v)", rows, err)
		}
		collections, err := reopened.Collections(ctx)
		if err != nil || len(collections) != 1 || collections[0] != "Customer" {
			t.Fatalf("Unexpected collections %v (%v)", collections, err)
		}
	})

	t.Run("EmptyName", func(t *testing.T) {
		if err := NewTableFactory().Open(ctx, ""); !errors.IsValidationError(err) {
			t.Fatalf("Expected validation error, got %v", err)
		}
	})
}
