//go:build integration
// +build integration

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablestore_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"github.com/suparena/tablestore"
	"github.com/suparena/tablestore/datastore/ddb"
	"github.com/suparena/tablestore/registry"
	"github.com/suparena/tablestore/storagemodels"
	"github.com/suparena/tablestore/tracking"
)

func integrationModel() (*registry.Model, *registry.EntityType, *registry.EntityType) {
	m := registry.NewModel()
	user := m.MustAddEntityType("IntegrationUser",
		registry.WithKeys("ID"),
		registry.WithIndexMap(map[string]string{"PK": "USER#{ID}", "SK": "USER#{ID}"}),
	)
	order := m.MustAddEntityType("IntegrationOrder",
		registry.WithKeys("UserID", "OrderID"),
		registry.WithIndexMap(map[string]string{"PK": "USER#{UserID}", "SK": "ORDER#{OrderID}"}),
	)
	return m, user, order
}

func setupIntegrationStore(t *testing.T) *tablestore.Store {
	_ = godotenv.Load()
	tableName := os.Getenv("DDB_TEST_TABLE_NAME")
	if tableName == "" {
		t.Skip("DDB_TEST_TABLE_NAME not set, skipping integration test")
	}

	ctx := context.Background()
	client, err := ddb.NewDynamoDBClient(ctx,
		os.Getenv("AWS_REGION"),
		os.Getenv("AWS_ACCESS_KEY_ID"),
		os.Getenv("AWS_SECRET_ACCESS_KEY"),
		os.Getenv("DDB_ENDPOINT"),
	)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	store, err := tablestore.New(ctx, ddb.NewTableFactory(client), tableName)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func rowsWithPrefix(rows []storagemodels.Row, field, prefix string) int {
	n := 0
	for _, r := range rows {
		if s, ok := r[field].(string); ok && strings.HasPrefix(s, prefix) {
			n++
		}
	}
	return n
}

func TestIntegrationTransaction(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	store := setupIntegrationStore(t)
	model, user, order := integrationModel()
	sm := tracking.NewStateManager(tracking.Dependencies{Model: model})

	prefix := fmt.Sprintf("it-%d-", time.Now().UnixNano())
	var entries []*storagemodels.Entry
	add := func(values storagemodels.Row, et *registry.EntityType) *storagemodels.Entry {
		e, err := sm.CreateEntry(values, et)
		if err != nil {
			t.Fatalf("CreateEntry failed: %v", err)
		}
		if err := sm.SetEntityState(e, storagemodels.Added); err != nil {
			t.Fatalf("SetEntityState failed: %v", err)
		}
		entries = append(entries, e)
		return e
	}

	u := add(storagemodels.Row{"ID": prefix + "u1", "Email": "test@example.com"}, user)
	for i := 1; i <= 3; i++ {
		add(storagemodels.Row{"UserID": prefix + "u1", "OrderID": fmt.Sprintf("%so%d", prefix, i), "Total": 10.5 * float64(i)}, order)
	}

	n, err := store.ExecuteTransaction(ctx, entries, nil)
	if err != nil {
		t.Fatalf("ExecuteTransaction failed: %v", err)
	}
	if n != 4 {
		t.Fatalf("Expected 4 rows affected, got %d", n)
	}

	snaps, err := store.GetTables(ctx, order)
	if err != nil {
		t.Fatalf("GetTables failed: %v", err)
	}
	if got := rowsWithPrefix(snaps[0].Rows, "OrderID", prefix); got != 3 {
		t.Fatalf("Expected 3 orders, got %d", got)
	}

	// Update the user, then delete everything.
	u.Values["Email"] = "updated@example.com"
	if err := sm.SetEntityState(u, storagemodels.Modified); err != nil {
		t.Fatalf("SetEntityState failed: %v", err)
	}
	if _, err := store.ExecuteTransaction(ctx, []*storagemodels.Entry{u}, nil); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	for _, e := range entries {
		if err := sm.SetEntityState(e, storagemodels.Deleted); err != nil {
			t.Fatalf("SetEntityState failed: %v", err)
		}
	}
	if n, err := store.ExecuteTransaction(ctx, entries, nil); err != nil || n != 4 {
		t.Fatalf("Delete failed: n=%d err=%v", n, err)
	}

	snaps, err = store.GetTables(ctx, user)
	if err != nil {
		t.Fatalf("GetTables failed: %v", err)
	}
	if got := rowsWithPrefix(snaps[0].Rows, "ID", prefix); got != 0 {
		t.Fatalf("Expected test users to be deleted, %d remain", got)
	}
}
