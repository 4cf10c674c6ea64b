/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package sqlite provides an embedded document store backend on a single
// SQLite database. Rows are stored as JSON documents grouped in collections,
// one collection per entity type.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/suparena/tablestore/datastore"
	serrors "github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/registry"
	"github.com/suparena/tablestore/storagemodels"
)

// MemoryName opens a private in-memory database.
const MemoryName = ":memory:"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id         TEXT NOT NULL,
		body       TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	)`,
}

// TableFactory creates tables bound to one SQLite database.
type TableFactory struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// NewTableFactory creates an unbound factory; Open binds it to a database file.
func NewTableFactory() *TableFactory {
	return &TableFactory{}
}

// Open opens, or creates, the database at name. MemoryName keeps everything in memory.
func (f *TableFactory) Open(ctx context.Context, name string) error {
	if name == "" {
		return serrors.NewValidationError("name", "database path is required")
	}
	if name != MemoryName {
		if err := os.MkdirAll(filepath.Dir(name), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", name)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps :memory: databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return fmt.Errorf("create schema: %w", err)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.db != nil {
		_ = f.db.Close()
	}
	f.db = db
	f.path = name
	return nil
}

// Path returns the database path the factory is bound to.
func (f *TableFactory) Path() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.path
}

// DB exposes the underlying sql.DB for tests and maintenance.
func (f *TableFactory) DB() *sql.DB {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.db
}

func (f *TableFactory) conn() (*sql.DB, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.db == nil {
		return nil, serrors.ErrStoreClosed
	}
	return f.db, nil
}

// Create registers the entity type's collection and returns a table over it.
func (f *TableFactory) Create(ctx context.Context, entityType *registry.EntityType) (datastore.Table, error) {
	db, err := f.conn()
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO collections(name) VALUES(?) ON CONFLICT(name) DO NOTHING`, entityType.Name()); err != nil {
		return nil, fmt.Errorf("register collection %s: %w", entityType.Name(), err)
	}
	return &Table{factory: f, entityType: entityType, collection: entityType.Name()}, nil
}

// Collections lists the collections ever created in the database.
func (f *TableFactory) Collections(ctx context.Context) ([]string, error) {
	db, err := f.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select collections: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Close closes the database.
func (f *TableFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.db == nil {
		return nil
	}
	err := f.db.Close()
	f.db = nil
	return err
}

// Table is a collection of JSON documents for one entity type.
type Table struct {
	factory    *TableFactory
	entityType *registry.EntityType
	collection string
}

func (t *Table) prepare(entry *storagemodels.Entry) (*sql.DB, string, error) {
	db, err := t.factory.conn()
	if err != nil {
		return nil, "", err
	}
	key, err := entry.Key()
	if err != nil {
		return nil, "", err
	}
	return db, key, nil
}

func encode(entry *storagemodels.Entry) ([]byte, error) {
	body, err := json.Marshal(entry.Values)
	if err != nil {
		return nil, serrors.NewValidationError("", fmt.Sprintf("encode %s: %v", entry.EntityType.Name(), err))
	}
	return body, nil
}

// Create inserts a new document.
func (t *Table) Create(ctx context.Context, entry *storagemodels.Entry) error {
	db, key, err := t.prepare(entry)
	if err != nil {
		return err
	}
	body, err := encode(entry)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO documents(collection, id, body) VALUES(?, ?, ?) ON CONFLICT(collection, id) DO NOTHING`,
		t.collection, key, string(body))
	if err != nil {
		return fmt.Errorf("insert %s: %w", t.collection, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("insert %s: %w", t.collection, err)
	} else if n == 0 {
		return serrors.NewAlreadyExistsError(t.entityType.Name(), key)
	}
	return nil
}

// Update replaces an existing document.
func (t *Table) Update(ctx context.Context, entry *storagemodels.Entry) error {
	db, key, err := t.prepare(entry)
	if err != nil {
		return err
	}
	body, err := encode(entry)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx,
		`UPDATE documents SET body = ? WHERE collection = ? AND id = ?`,
		string(body), t.collection, key)
	if err != nil {
		return fmt.Errorf("update %s: %w", t.collection, err)
	}
	return t.checkAffected(res, key, "update")
}

// Delete removes a document.
func (t *Table) Delete(ctx context.Context, entry *storagemodels.Entry) error {
	db, key, err := t.prepare(entry)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`,
		t.collection, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.collection, err)
	}
	return t.checkAffected(res, key, "delete")
}

func (t *Table) checkAffected(res sql.Result, key, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, t.collection, err)
	}
	if n == 0 {
		return serrors.NewNotFoundError(t.entityType.Name(), key)
	}
	return nil
}

// SnapshotRows decodes every document of the collection, ordered by key.
func (t *Table) SnapshotRows(ctx context.Context) ([]storagemodels.Row, error) {
	db, err := t.factory.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, body FROM documents WHERE collection = ? ORDER BY id`, t.collection)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", t.collection, err)
	}
	defer func() { _ = rows.Close() }()

	var out []storagemodels.Row
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var r storagemodels.Row
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			return nil, fmt.Errorf("decode %s %q: %w", t.collection, id, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select %s: %w", t.collection, err)
	}
	return out, nil
}
