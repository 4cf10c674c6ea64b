/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"maps"
	"strings"
)

// Property describes a mapped field of an entity type.
type Property struct {
	// Name is the field name as it appears in row values.
	Name string
	// Format is an optional go-openapi string format (date-time, uuid, email, ...).
	Format string
}

// EntityType is the identity of a logical record kind in a Model.
// Its fields are fixed once the type has been added to the model.
type EntityType struct {
	name       string
	abstract   bool
	base       *EntityType
	keys       []string
	properties []Property
	seed       []map[string]any
	indexMap   map[string]string
	model      *Model

	// derived holds the concrete types deriving from this one, in declaration order.
	derived []*EntityType
}

// Name returns the stable name of the entity type.
func (et *EntityType) Name() string { return et.name }

// IsAbstract reports whether rows of exactly this type can never be stored.
func (et *EntityType) IsAbstract() bool { return et.abstract }

// Base returns the direct base type, or nil for a root type.
func (et *EntityType) Base() *EntityType { return et.base }

// Model returns the model the type belongs to.
func (et *EntityType) Model() *Model { return et.model }

// Root returns the top of the inheritance chain.
func (et *EntityType) Root() *EntityType {
	root := et
	for root.base != nil {
		root = root.base
	}
	return root
}

// KeyFields returns the names of the fields forming the primary key,
// inherited from the closest base type that declares them.
func (et *EntityType) KeyFields() []string {
	for t := et; t != nil; t = t.base {
		if len(t.keys) > 0 {
			return append([]string(nil), t.keys...)
		}
	}
	return nil
}

// Properties returns the declared properties, base type properties first.
func (et *EntityType) Properties() []Property {
	var chain []*EntityType
	for t := et; t != nil; t = t.base {
		chain = append(chain, t)
	}
	var props []Property
	for i := len(chain) - 1; i >= 0; i-- {
		props = append(props, chain[i].properties...)
	}
	return props
}

// FindProperty looks up a property by name, including inherited ones.
func (et *EntityType) FindProperty(name string) (Property, bool) {
	for t := et; t != nil; t = t.base {
		for _, p := range t.properties {
			if p.Name == name {
				return p, true
			}
		}
	}
	return Property{}, false
}

// SeedData returns copies of the rows declared as initial data for this type.
func (et *EntityType) SeedData() []map[string]any {
	out := make([]map[string]any, 0, len(et.seed))
	for _, row := range et.seed {
		out = append(out, maps.Clone(row))
	}
	return out
}

// IndexMap returns the key templates used by backends that address rows
// through expanded keys (PK, SK, ...). When none was declared, both PK and SK
// expand to "<NAME>#{key1}#{key2}".
func (et *EntityType) IndexMap() map[string]string {
	for t := et; t != nil; t = t.base {
		if len(t.indexMap) > 0 {
			return maps.Clone(t.indexMap)
		}
	}
	parts := []string{strings.ToUpper(et.name)}
	for _, k := range et.KeyFields() {
		parts = append(parts, "{"+k+"}")
	}
	tmpl := strings.Join(parts, "#")
	return map[string]string{"PK": tmpl, "SK": tmpl}
}

// ConcreteDerivedTypesInclusive returns the type itself (when concrete) followed by
// every concrete type deriving from it, in model declaration order.
func (et *EntityType) ConcreteDerivedTypesInclusive() []*EntityType {
	out := make([]*EntityType, 0, len(et.derived)+1)
	if !et.abstract {
		out = append(out, et)
	}
	return append(out, et.derived...)
}

// IsAssignableFrom reports whether other is et or derives from it.
func (et *EntityType) IsAssignableFrom(other *EntityType) bool {
	for t := other; t != nil; t = t.base {
		if t == et {
			return true
		}
	}
	return false
}

func (et *EntityType) String() string { return et.name }
