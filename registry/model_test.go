/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"testing"

	"github.com/suparena/tablestore/errors"
)

func names(types []*EntityType) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, t.Name())
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestConcreteDerivedTypesInclusive(t *testing.T) {
	m := NewModel()
	animal := m.MustAddEntityType("Animal", Abstract(), WithKeys("ID"))
	dog := m.MustAddEntityType("Dog", WithBase(animal))
	bird := m.MustAddEntityType("Bird", Abstract(), WithBase(animal))
	parrot := m.MustAddEntityType("Parrot", WithBase(bird))
	puppy := m.MustAddEntityType("Puppy", WithBase(dog))

	tests := []struct {
		name     string
		typ      *EntityType
		expected []string
	}{
		{"abstract root", animal, []string{"Dog", "Parrot", "Puppy"}},
		{"concrete with subtype", dog, []string{"Dog", "Puppy"}},
		{"abstract middle", bird, []string{"Parrot"}},
		{"leaf", parrot, []string{"Parrot"}},
		{"leaf of concrete", puppy, []string{"Puppy"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(tt.typ.ConcreteDerivedTypesInclusive())
			if !equal(got, tt.expected) {
				t.Fatalf("Expected %v, got %v", tt.expected, got)
			}
		})
	}

	if !animal.IsAssignableFrom(puppy) {
		t.Error("Animal should be assignable from Puppy")
	}
	if bird.IsAssignableFrom(dog) {
		t.Error("Bird should not be assignable from Dog")
	}
	if puppy.Root() != animal {
		t.Errorf("Expected root Animal, got %v", puppy.Root())
	}
}

func TestInheritedKeysAndProperties(t *testing.T) {
	m := NewModel()
	person := m.MustAddEntityType("Person", Abstract(), WithKeys("ID"),
		WithProperties(Property{Name: "ID"}, Property{Name: "CreatedAt", Format: "date-time"}))
	customer := m.MustAddEntityType("Customer", WithBase(person),
		WithProperties(Property{Name: "Email", Format: "email"}))

	if keys := customer.KeyFields(); !equal(keys, []string{"ID"}) {
		t.Fatalf("Expected inherited keys [ID], got %v", keys)
	}

	var propNames []string
	for _, p := range customer.Properties() {
		propNames = append(propNames, p.Name)
	}
	if !equal(propNames, []string{"ID", "CreatedAt", "Email"}) {
		t.Fatalf("Unexpected properties %v", propNames)
	}

	p, ok := customer.FindProperty("CreatedAt")
	if !ok || p.Format != "date-time" {
		t.Fatalf("Expected inherited CreatedAt property, got %+v (%v)", p, ok)
	}
}

func TestIndexMap(t *testing.T) {
	m := NewModel()
	order := m.MustAddEntityType("Order", WithKeys("UserID", "OrderID"))
	user := m.MustAddEntityType("User", WithKeys("ID"), WithIndexMap(map[string]string{
		"PK": "USER#{ID}",
		"SK": "PROFILE",
	}))

	idx := order.IndexMap()
	if idx["PK"] != "ORDER#{UserID}#{OrderID}" || idx["SK"] != idx["PK"] {
		t.Fatalf("Unexpected default index map %v", idx)
	}

	idx = user.IndexMap()
	idx["PK"] = "mutated"
	if user.IndexMap()["PK"] != "USER#{ID}" {
		t.Fatal("IndexMap should return a copy")
	}
}

func TestAddEntityTypeValidation(t *testing.T) {
	other := NewModel()
	foreign := other.MustAddEntityType("Foreign", WithKeys("ID"))

	tests := []struct {
		name string
		add  func(m *Model) error
	}{
		{"empty name", func(m *Model) error {
			_, err := m.AddEntityType("")
			return err
		}},
		{"duplicate", func(m *Model) error {
			m.MustAddEntityType("Customer", WithKeys("ID"))
			_, err := m.AddEntityType("Customer", WithKeys("ID"))
			return err
		}},
		{"concrete without keys", func(m *Model) error {
			_, err := m.AddEntityType("Keyless")
			return err
		}},
		{"abstract with seed", func(m *Model) error {
			_, err := m.AddEntityType("Base", Abstract(), WithKeys("ID"), WithSeed(map[string]any{"ID": "1"}))
			return err
		}},
		{"foreign base", func(m *Model) error {
			_, err := m.AddEntityType("Child", WithBase(foreign))
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.add(NewModel())
			if !errors.IsValidationError(err) {
				t.Fatalf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestSeedDataIsCopied(t *testing.T) {
	m := NewModel()
	row := map[string]any{"ID": "c1", "Name": "Ada"}
	customer := m.MustAddEntityType("Customer", WithKeys("ID"), WithSeed(row))
	row["Name"] = "changed"

	seed := customer.SeedData()
	if len(seed) != 1 || seed[0]["Name"] != "Ada" {
		t.Fatalf("Unexpected seed data %v", seed)
	}
	seed[0]["Name"] = "changed again"
	if customer.SeedData()[0]["Name"] != "Ada" {
		t.Fatal("SeedData should return copies")
	}

	if got, ok := m.FindEntityType("Customer"); !ok || got != customer {
		t.Fatal("FindEntityType should return the registered type")
	}
	if got := names(m.EntityTypes()); !equal(got, []string{"Customer"}) {
		t.Fatalf("Unexpected entity types %v", got)
	}
}
