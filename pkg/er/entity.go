package er

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/matzehuels/erdiagram/pkg/errors"
)

// IDField is the identifier field every entity carries. If absent from the
// field list passed to [NewEntity], it is inserted first.
const IDField = "id"

// Label styling. These are fixed for every entity.
const (
	headerBGColor     = "#cfcfcf"
	headerMinWidth    = "72"
	headerCellPadding = "5"
	fieldAlign        = "left"

	tableAttrs = `border="1" cellborder="0" cellspacing="0" cellpadding="2"`
)

// Anchor identifies an edge endpoint: either a whole entity ("person") or one
// field of an entity ("student:person_id").
type Anchor string

// Node returns the entity name part of the anchor.
func (a Anchor) Node() string {
	node, _, _ := strings.Cut(string(a), ":")
	return node
}

// Port returns the field part of the anchor, or "" for a whole-entity anchor.
func (a Anchor) Port() string {
	_, port, _ := strings.Cut(string(a), ":")
	return port
}

func (a Anchor) String() string { return string(a) }

// Relation is a relationship declared on an entity before it is registered
// with a graph. Field is the source field the edge starts from, or "" to
// anchor at the whole source entity.
type Relation struct {
	From  *Entity
	To    *Entity
	Field string
}

// Entity is a named record with an ordered, lower-cased field list.
//
// The field list is fixed at construction. Relations can be appended with
// [Entity.DeclareEdgeTo] until a graph registers the entity.
//
// The zero value is not usable - use NewEntity.
type Entity struct {
	name      string
	fields    []string
	index     map[string]struct{}
	relations []Relation
	sealed    bool

	labelOnce sync.Once
	label     string
}

// NewEntity creates an entity with the given name and fields.
//
// Field names are lower-cased. When [IDField] is not among them it is
// inserted as the first field. Returns an INVALID_ENTITY error if the name
// or a field name is malformed, or if two fields collide after
// normalization.
func NewEntity(name string, fields ...string) (*Entity, error) {
	if err := errors.ValidateEntityName(name); err != nil {
		return nil, err
	}

	normalized := make([]string, 0, len(fields)+1)
	index := make(map[string]struct{}, len(fields)+1)
	for _, f := range fields {
		f = strings.ToLower(f)
		if err := errors.ValidateFieldName(f); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidEntity, err, "entity %s", name)
		}
		if _, dup := index[f]; dup {
			return nil, errors.New(errors.ErrCodeInvalidEntity, "entity %s: duplicate field %q", name, f)
		}
		index[f] = struct{}{}
		normalized = append(normalized, f)
	}
	if _, ok := index[IDField]; !ok {
		normalized = slices.Insert(normalized, 0, IDField)
		index[IDField] = struct{}{}
	}

	return &Entity{
		name:   name,
		fields: normalized,
		index:  index,
	}, nil
}

// MustEntity is like NewEntity but panics on error.
// It is intended for examples, tests and statically known diagrams.
func MustEntity(name string, fields ...string) *Entity {
	e, err := NewEntity(name, fields...)
	if err != nil {
		panic(err)
	}
	return e
}

// Name returns the entity name, which is also its node ID.
func (e *Entity) Name() string { return e.name }

// Fields returns a copy of the field list in declaration order.
func (e *Entity) Fields() []string { return slices.Clone(e.fields) }

// HasField reports whether the entity has the field, after lower-casing.
func (e *Entity) HasField(field string) bool {
	_, ok := e.index[strings.ToLower(field)]
	return ok
}

// Relations returns a copy of the relations declared with DeclareEdgeTo.
func (e *Entity) Relations() []Relation { return slices.Clone(e.relations) }

// SelfAnchor returns the anchor for the entity as a whole.
func (e *Entity) SelfAnchor() Anchor { return Anchor(e.name) }

// FieldAnchor returns the anchor for one field of the entity.
// Returns an UNKNOWN_FIELD error if the entity has no such field.
func (e *Entity) FieldAnchor(field string) (Anchor, error) {
	f := strings.ToLower(field)
	if _, ok := e.index[f]; !ok {
		return "", errors.New(errors.ErrCodeUnknownField, "entity %s has no field %q", e.name, field)
	}
	return Anchor(e.name + ":" + f), nil
}

// DeclareEdgeTo records a relationship from e to target, anchored at field
// of e (or at e as a whole when field is empty). No graph is touched; the
// relation is processed when e is registered.
//
// The field is checked immediately, so a relation that was accepted here
// can always be materialized later. Once a graph has registered e its
// relations are read and further declarations fail with ENTITY_SEALED; use
// [Graph.DeclareEdge] instead.
func (e *Entity) DeclareEdgeTo(target *Entity, field string) error {
	if target == nil {
		return errors.New(errors.ErrCodeInvalidEntity, "entity %s: relation target is nil", e.name)
	}
	if target.index == nil {
		return errors.New(errors.ErrCodeInvalidEntity, "entity %s: relation target was not created with NewEntity", e.name)
	}
	if e.sealed {
		return errors.New(errors.ErrCodeEntitySealed, "entity %s is already registered; declare the edge on the graph", e.name)
	}
	if field != "" {
		if _, err := e.FieldAnchor(field); err != nil {
			return err
		}
	}
	e.relations = append(e.relations, Relation{From: e, To: target, Field: field})
	return nil
}

// Label returns the entity's table markup: a header row with the
// capitalized name, then one row per field tagged with the field's port.
//
// The label is built on first call and cached for the life of the entity.
func (e *Entity) Label() string {
	e.labelOnce.Do(func() {
		e.label = e.buildLabel()
	})
	return e.label
}

func (e *Entity) buildLabel() string {
	var b strings.Builder
	b.WriteString("<table " + tableAttrs + ">\n")
	fmt.Fprintf(&b, "\t<tr><td bgcolor=%q width=%q cellpadding=%q>%s</td></tr>\n",
		headerBGColor, headerMinWidth, headerCellPadding, capitalize(e.name))
	for _, f := range e.fields {
		fmt.Fprintf(&b, "\t<tr><td align=%q port=%q>  %s</td></tr>\n", fieldAlign, f, f)
	}
	b.WriteString("</table>")
	return b.String()
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
