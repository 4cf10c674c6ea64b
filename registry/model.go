/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"maps"
	"sync"

	"github.com/suparena/tablestore/errors"
)

// Model is the set of entity types known to a store, in declaration order.
type Model struct {
	mu     sync.RWMutex
	types  []*EntityType
	byName map[string]*EntityType
}

// NewModel creates an empty model.
func NewModel() *Model {
	return &Model{byName: make(map[string]*EntityType)}
}

// EntityTypeOption configures an entity type while it is added to a model.
type EntityTypeOption func(*EntityType)

// Abstract marks the type as never directly stored.
func Abstract() EntityTypeOption {
	return func(et *EntityType) { et.abstract = true }
}

// WithBase sets the direct base type.
func WithBase(base *EntityType) EntityTypeOption {
	return func(et *EntityType) { et.base = base }
}

// WithKeys declares the key fields; derived types inherit them.
func WithKeys(fields ...string) EntityTypeOption {
	return func(et *EntityType) { et.keys = append([]string(nil), fields...) }
}

// WithProperties declares mapped properties.
func WithProperties(props ...Property) EntityTypeOption {
	return func(et *EntityType) { et.properties = append(et.properties, props...) }
}

// WithSeed declares initial rows inserted by EnsureCreated.
func WithSeed(rows ...map[string]any) EntityTypeOption {
	return func(et *EntityType) {
		for _, r := range rows {
			et.seed = append(et.seed, maps.Clone(r))
		}
	}
}

// WithIndexMap declares key templates such as {"PK": "USER#{ID}", "SK": "PROFILE"}.
func WithIndexMap(indexMap map[string]string) EntityTypeOption {
	return func(et *EntityType) { et.indexMap = maps.Clone(indexMap) }
}

// AddEntityType adds a new entity type and records it in the derived-type
// closure of each of its ancestors.
func (m *Model) AddEntityType(name string, opts ...EntityTypeOption) (*EntityType, error) {
	if name == "" {
		return nil, errors.NewValidationError("name", "entity type name is required")
	}
	et := &EntityType{name: name, model: m}
	for _, opt := range opts {
		opt(et)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byName[name]; exists {
		return nil, errors.NewValidationError("name", fmt.Sprintf("entity type %q already defined", name))
	}
	if et.base != nil && et.base.model != m {
		return nil, errors.NewValidationError("base", fmt.Sprintf("base type %q of %q belongs to another model", et.base.name, name))
	}
	if et.abstract && len(et.seed) > 0 {
		return nil, errors.NewValidationError("seed", fmt.Sprintf("abstract entity type %q cannot declare seed data", name))
	}
	if !et.abstract && len(et.KeyFields()) == 0 {
		return nil, errors.NewValidationError("keys", fmt.Sprintf("concrete entity type %q has no key fields", name))
	}

	m.types = append(m.types, et)
	m.byName[name] = et
	if !et.abstract {
		for b := et.base; b != nil; b = b.base {
			b.derived = append(b.derived, et)
		}
	}
	return et, nil
}

// MustAddEntityType is like AddEntityType but panics on error.
// It is meant for package-level model definitions.
func (m *Model) MustAddEntityType(name string, opts ...EntityTypeOption) *EntityType {
	et, err := m.AddEntityType(name, opts...)
	if err != nil {
		panic(fmt.Sprintf("registry: %v", err))
	}
	return et
}

// EntityTypes returns every entity type in declaration order.
func (m *Model) EntityTypes() []*EntityType {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*EntityType(nil), m.types...)
}

// FindEntityType looks up an entity type by name.
func (m *Model) FindEntityType(name string) (*EntityType, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	et, ok := m.byName[name]
	return et, ok
}
