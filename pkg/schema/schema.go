package schema

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/erdiagram/pkg/er"
	"github.com/matzehuels/erdiagram/pkg/errors"
)

// Document formats.
const (
	FormatJSON = "json"
	FormatTOML = "toml"
	FormatYAML = "yaml"
)

// foreignKeySuffixes mark fields that reference another entity by name,
// e.g. person_id or person_idx -> person.
var foreignKeySuffixes = []string{"_id", "_idx"}

// Schema is a diagram definition.
type Schema struct {
	Entities []EntityDef `json:"entities" toml:"entities" yaml:"entities"`
}

// EntityDef defines one entity and the relations it declares.
type EntityDef struct {
	Name      string        `json:"name" toml:"name" yaml:"name"`
	Fields    []string      `json:"fields,omitempty" toml:"fields,omitempty" yaml:"fields,omitempty"`
	Relations []RelationDef `json:"relations,omitempty" toml:"relations,omitempty" yaml:"relations,omitempty"`
}

// RelationDef is an edge from the enclosing entity to To, starting at Field
// (or at the whole entity when Field is empty).
type RelationDef struct {
	To    string `json:"to" toml:"to" yaml:"to"`
	Field string `json:"field,omitempty" toml:"field,omitempty" yaml:"field,omitempty"`
}

// BuildOptions controls how a schema is turned into a diagram.
type BuildOptions struct {
	// InferForeignKeys adds a relation for every field named <entity>_id or
	// <entity>_idx where <entity> is defined in the schema.
	InferForeignKeys bool
}

// DetectFormat returns the document format implied by a file extension.
func DetectFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidFormat, "cannot detect schema format of %s (use .json, .toml, .yaml or .yml)", path)
	}
}

// Load reads and parses a schema file. The format is taken from the file
// extension.
func Load(path string) (*Schema, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "schema %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read schema %s", path)
	}
	return Parse(data, format)
}

// Parse decodes a schema document and validates it.
func Parse(data []byte, format string) (*Schema, error) {
	var s Schema
	var err error
	switch strings.ToLower(format) {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&s)
	case FormatTOML:
		_, err = toml.Decode(string(data), &s)
	case FormatYAML, "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&s)
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported schema format: %q", format)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSchema, err, "decode %s schema", format)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks entity names and relation targets. Field names and field
// references are checked when the entities are built.
func (s *Schema) Validate() error {
	if len(s.Entities) == 0 {
		return errors.New(errors.ErrCodeInvalidSchema, "schema defines no entities")
	}
	seen := make(map[string]bool, len(s.Entities))
	for _, def := range s.Entities {
		if err := errors.ValidateEntityName(def.Name); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidSchema, err, "entity %q", def.Name)
		}
		if seen[def.Name] {
			return errors.New(errors.ErrCodeInvalidSchema, "entity %s is defined more than once", def.Name)
		}
		seen[def.Name] = true
	}
	for _, def := range s.Entities {
		for _, rel := range def.Relations {
			if !seen[rel.To] {
				return errors.New(errors.ErrCodeNotFound, "entity %s: relation target %q is not defined", def.Name, rel.To)
			}
		}
	}
	return nil
}

// Build creates the schema's entities, declares their relations and
// registers them with g in document order. The entities are returned in
// the same order.
func (s *Schema) Build(g *er.Graph, opts BuildOptions) ([]*er.Entity, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	entities := make([]*er.Entity, 0, len(s.Entities))
	byName := make(map[string]*er.Entity, len(s.Entities))
	for _, def := range s.Entities {
		e, err := er.NewEntity(def.Name, def.Fields...)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
		byName[def.Name] = e
	}

	for i, def := range s.Entities {
		src := entities[i]
		for _, rel := range def.Relations {
			if err := src.DeclareEdgeTo(byName[rel.To], rel.Field); err != nil {
				return nil, err
			}
		}
		if opts.InferForeignKeys {
			for _, field := range src.Fields() {
				target, ok := referencedEntity(field, entities)
				if !ok {
					continue
				}
				if err := src.DeclareEdgeTo(target, field); err != nil {
					return nil, err
				}
			}
		}
	}

	for _, e := range entities {
		if err := g.Register(e); err != nil {
			return nil, err
		}
	}
	return entities, nil
}

// referencedEntity resolves a foreign-key style field to the entity it
// names. Entity names are matched case-insensitively since fields are
// always lower case; an exact match wins, then the first entity in
// document order.
func referencedEntity(field string, entities []*er.Entity) (*er.Entity, bool) {
	for _, suffix := range foreignKeySuffixes {
		prefix, ok := strings.CutSuffix(field, suffix)
		if !ok || prefix == "" {
			continue
		}
		if i := slices.IndexFunc(entities, func(e *er.Entity) bool { return e.Name() == prefix }); i >= 0 {
			return entities[i], true
		}
		if i := slices.IndexFunc(entities, func(e *er.Entity) bool { return strings.EqualFold(e.Name(), prefix) }); i >= 0 {
			return entities[i], true
		}
	}
	return nil, false
}
