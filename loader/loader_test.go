/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/suparena/tablestore/errors"
)

const sampleModel = `
entityTypes:
  - name: Person
    abstract: true
    keys: [ID]
    properties:
      - name: Email
        format: email
  - name: Customer
    base: Person
    properties:
      - name: CreatedAt
        format: date-time
    indexMap:
      PK: "CUSTOMER#{ID}"
      SK: "PROFILE"
    seed:
      - ID: c1
        Name: Ada
        Email: ada@example.com
        CreatedAt: 2024-03-01T10:00:00+02:00
  - name: Employee
    base: Person
`

func TestParseModel(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		m, err := ParseModel([]byte(sampleModel))
		if err != nil {
			t.Fatalf("ParseModel failed: %v", err)
		}

		person, ok := m.FindEntityType("Person")
		if !ok || !person.IsAbstract() {
			t.Fatalf("Expected abstract Person, got %v", person)
		}
		derived := person.ConcreteDerivedTypesInclusive()
		if len(derived) != 2 || derived[0].Name() != "Customer" || derived[1].Name() != "Employee" {
			t.Fatalf("Unexpected derived types %v", derived)
		}

		customer, _ := m.FindEntityType("Customer")
		if keys := customer.KeyFields(); len(keys) != 1 || keys[0] != "ID" {
			t.Fatalf("Expected inherited key ID, got %v", keys)
		}
		if customer.IndexMap()["SK"] != "PROFILE" {
			t.Fatalf("Unexpected index map %v", customer.IndexMap())
		}

		seed := customer.SeedData()
		if len(seed) != 1 {
			t.Fatalf("Expected 1 seed row, got %d", len(seed))
		}
		if got := seed[0]["CreatedAt"]; got != "2024-03-01T08:00:00Z" {
			t.Fatalf("Expected normalized UTC date-time, got %v", got)
		}
		if seed[0]["Name"] != "Ada" {
			t.Fatalf("Unexpected seed row %v", seed[0])
		}
	})

	t.Run("InvalidFormatValue", func(t *testing.T) {
		data := `
entityTypes:
  - name: Customer
    keys: [ID]
    properties:
      - name: Email
        format: email
    seed:
      - ID: c1
        Email: not-an-email
`
		if _, err := ParseModel([]byte(data)); !errors.IsValidationError(err) {
			t.Fatalf("Expected validation error, got %v", err)
		}
	})

	t.Run("NonStringFormatValue", func(t *testing.T) {
		data := `
entityTypes:
  - name: Customer
    keys: [ID]
    properties:
      - name: CreatedAt
        format: date-time
    seed:
      - ID: c1
        CreatedAt: 42
`
		if _, err := ParseModel([]byte(data)); !errors.IsValidationError(err) {
			t.Fatalf("Expected validation error, got %v", err)
		}
	})

	t.Run("UnknownFormat", func(t *testing.T) {
		data := `
entityTypes:
  - name: Customer
    keys: [ID]
    properties:
      - name: Code
        format: no-such-format
`
		if _, err := ParseModel([]byte(data)); !errors.IsValidationError(err) {
			t.Fatalf("Expected validation error, got %v", err)
		}
	})

	t.Run("BaseDeclaredLater", func(t *testing.T) {
		data := `
entityTypes:
  - name: Customer
    base: Person
  - name: Person
    keys: [ID]
`
		if _, err := ParseModel([]byte(data)); !errors.IsValidationError(err) {
			t.Fatalf("Expected validation error, got %v", err)
		}
	})

	t.Run("AbstractWithSeed", func(t *testing.T) {
		data := `
entityTypes:
  - name: Person
    abstract: true
    keys: [ID]
    seed:
      - ID: p1
`
		if _, err := ParseModel([]byte(data)); !errors.IsValidationError(err) {
			t.Fatalf("Expected validation error, got %v", err)
		}
	})

	t.Run("MalformedYAML", func(t *testing.T) {
		if _, err := ParseModel([]byte("entityTypes: [")); !errors.IsValidationError(err) {
			t.Fatalf("Expected validation error, got %v", err)
		}
	})
}

func TestLoadModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	if err := os.WriteFile(path, []byte(sampleModel), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	m, err := LoadModel(path)
	if err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}
	if len(m.EntityTypes()) != 3 {
		t.Fatalf("Expected 3 entity types, got %d", len(m.EntityTypes()))
	}

	if _, err := LoadModel(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Expected error for missing file")
	}
}
