/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"fmt"
	"sort"
	"strings"

	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/registry"
)

// EntityState is the lifecycle state of a tracked entry.
type EntityState int

const (
	// Detached entries are not tracked.
	Detached EntityState = iota
	// Unchanged entries match the stored row.
	Unchanged
	// Deleted entries are removed on save.
	Deleted
	// Modified entries overwrite the stored row on save.
	Modified
	// Added entries are inserted on save.
	Added
)

func (s EntityState) String() string {
	switch s {
	case Detached:
		return "Detached"
	case Unchanged:
		return "Unchanged"
	case Deleted:
		return "Deleted"
	case Modified:
		return "Modified"
	case Added:
		return "Added"
	}
	return fmt.Sprintf("EntityState(%d)", int(s))
}

// Row holds the field values of one stored record.
type Row map[string]any

// Clone returns a deep copy of the row. Nested maps and slices are copied;
// other values are assumed immutable.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return map[string]any(Row(tv).Clone())
	case Row:
		return tv.Clone()
	case []any:
		out := make([]any, len(tv))
		for i, item := range tv {
			out[i] = cloneValue(item)
		}
		return out
	case []byte:
		return append([]byte(nil), tv...)
	}
	return v
}

// Entry is a pending change submitted by the change-tracking layer.
// The table registry reads it during a single transaction and never retains it.
type Entry struct {
	// EntityType is the concrete type the row belongs to.
	EntityType *registry.EntityType
	// State selects the table operation.
	State EntityState
	// Values are the field values, including the key fields.
	Values Row
	// SharedIdentityEntry links an entry that shares the same storage key,
	// such as the deleted half of a replaced dependent.
	SharedIdentityEntry *Entry
}

// KeyValues returns the values of the key fields, in key order.
func (e *Entry) KeyValues() ([]any, error) {
	if e.EntityType == nil {
		return nil, errors.NewValidationError("", "entry has no entity type")
	}
	fields := e.EntityType.KeyFields()
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		v, ok := e.Values[f]
		if !ok || v == nil {
			return nil, errors.NewValidationError(f, fmt.Sprintf("key value is missing for %s", e.EntityType.Name()))
		}
		out = append(out, v)
	}
	return out, nil
}

// Key renders the key values as a single string, joined with "#".
func (e *Entry) Key() (string, error) {
	values, err := e.KeyValues()
	if err != nil {
		return "", err
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, "#"), nil
}

func (e *Entry) String() string {
	name := "<nil>"
	if e.EntityType != nil {
		name = e.EntityType.Name()
	}
	key, err := e.Key()
	if err != nil {
		key = "?"
	}
	return fmt.Sprintf("%s{%s} %s", name, key, e.State)
}

// TableSnapshot is a point-in-time copy of the rows of one table.
type TableSnapshot struct {
	EntityType *registry.EntityType
	Rows       []Row
}

// Len returns the number of rows in the snapshot.
func (s TableSnapshot) Len() int { return len(s.Rows) }

// SortRows orders rows by the string form of their key fields.
func SortRows(et *registry.EntityType, rows []Row) {
	keyOf := func(r Row) string {
		e := Entry{EntityType: et, Values: r}
		k, _ := e.Key()
		return k
	}
	sort.SliceStable(rows, func(i, j int) bool { return keyOf(rows[i]) < keyOf(rows[j]) })
}
