/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package loader

import (
	"fmt"
	"os"
	"time"

	"github.com/go-openapi/strfmt"
	"gopkg.in/yaml.v3"

	"github.com/suparena/tablestore/errors"
	"github.com/suparena/tablestore/registry"
)

// ModelFile is the YAML layout of a model definition.
type ModelFile struct {
	EntityTypes []EntityTypeDef `yaml:"entityTypes"`
}

// EntityTypeDef declares one entity type. Base types must be declared before
// the types deriving from them.
type EntityTypeDef struct {
	Name       string            `yaml:"name"`
	Base       string            `yaml:"base,omitempty"`
	Abstract   bool              `yaml:"abstract,omitempty"`
	Keys       []string          `yaml:"keys,omitempty"`
	Properties []PropertyDef     `yaml:"properties,omitempty"`
	IndexMap   map[string]string `yaml:"indexMap,omitempty"`
	Seed       []map[string]any  `yaml:"seed,omitempty"`
}

// PropertyDef declares a mapped property. Format is a go-openapi format name
// such as date-time, uuid or email.
type PropertyDef struct {
	Name   string `yaml:"name"`
	Format string `yaml:"format,omitempty"`
}

// LoadModel reads a model definition from a YAML file.
func LoadModel(path string) (*registry.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	m, err := ParseModel(data)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	return m, nil
}

// ParseModel builds a model from YAML. Seed values of formatted properties
// are validated and date-times are normalized to RFC 3339.
func ParseModel(data []byte) (*registry.Model, error) {
	var file ModelFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.NewValidationError("", fmt.Sprintf("invalid model YAML: %v", err))
	}

	m := registry.NewModel()
	for _, def := range file.EntityTypes {
		if err := addEntityType(m, def); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func addEntityType(m *registry.Model, def EntityTypeDef) error {
	var base *registry.EntityType
	if def.Base != "" {
		var ok bool
		if base, ok = m.FindEntityType(def.Base); !ok {
			return errors.NewValidationError("base", fmt.Sprintf("base type %q of %q is not declared before it", def.Base, def.Name))
		}
	}

	props := make([]registry.Property, 0, len(def.Properties))
	for _, p := range def.Properties {
		if p.Format != "" && !strfmt.Default.ContainsName(p.Format) {
			return errors.NewValidationError(p.Name, fmt.Sprintf("unknown format %q", p.Format))
		}
		props = append(props, registry.Property{Name: p.Name, Format: p.Format})
	}

	formatOf := func(field string) string {
		for _, p := range props {
			if p.Name == field {
				return p.Format
			}
		}
		if base != nil {
			if p, ok := base.FindProperty(field); ok {
				return p.Format
			}
		}
		return ""
	}

	seed := make([]map[string]any, 0, len(def.Seed))
	for i, row := range def.Seed {
		normalized, err := normalizeRow(row, formatOf)
		if err != nil {
			return fmt.Errorf("seed row %d of %s: %w", i, def.Name, err)
		}
		seed = append(seed, normalized)
	}

	opts := []registry.EntityTypeOption{registry.WithProperties(props...)}
	if base != nil {
		opts = append(opts, registry.WithBase(base))
	}
	if def.Abstract {
		opts = append(opts, registry.Abstract())
	}
	if len(def.Keys) > 0 {
		opts = append(opts, registry.WithKeys(def.Keys...))
	}
	if len(def.IndexMap) > 0 {
		opts = append(opts, registry.WithIndexMap(def.IndexMap))
	}
	if len(seed) > 0 {
		opts = append(opts, registry.WithSeed(seed...))
	}
	_, err := m.AddEntityType(def.Name, opts...)
	return err
}

func normalizeRow(row map[string]any, formatOf func(string) string) (map[string]any, error) {
	out := make(map[string]any, len(row))
	for field, value := range row {
		format := formatOf(field)
		if format == "" || value == nil {
			out[field] = value
			continue
		}
		v, err := normalizeValue(field, format, value)
		if err != nil {
			return nil, err
		}
		out[field] = v
	}
	return out, nil
}

func normalizeValue(field, format string, value any) (any, error) {
	var s string
	switch tv := value.(type) {
	case string:
		s = tv
	case time.Time:
		s = tv.Format(time.RFC3339Nano)
	default:
		return nil, errors.NewValidationError(field, fmt.Sprintf("%s value must be a string, got %T", format, value))
	}

	if !strfmt.Default.Validates(format, s) {
		return nil, errors.NewValidationError(field, fmt.Sprintf("%q is not a valid %s", s, format))
	}
	if format == "date-time" {
		dt, err := strfmt.ParseDateTime(s)
		if err != nil {
			return nil, errors.NewValidationError(field, err.Error())
		}
		return time.Time(dt).UTC().Format(time.RFC3339Nano), nil
	}
	return s, nil
}
