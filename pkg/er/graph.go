package er

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/erdiagram/pkg/errors"
	"github.com/matzehuels/erdiagram/pkg/observability"
)

// Renderer receives the visual elements of a diagram. Calls arrive in the
// order the diagram is built and are expected to have side effects.
type Renderer interface {
	// EmitNode adds a box for an entity. label is the table markup from
	// [Entity.Label].
	EmitNode(id, label string)

	// EmitEdge adds a connector between two anchors.
	EmitEdge(from, to Anchor)
}

// EdgeKey is the resolved anchor pair of an edge. Two declarations with the
// same key are the same edge.
type EdgeKey struct {
	From Anchor
	To   Anchor
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger used for debug output about deferred and
// duplicate edges. Defaults to log.Default().
func WithLogger(l *log.Logger) Option {
	return func(g *Graph) {
		if l != nil {
			g.logger = l
		}
	}
}

// Graph is the entity registry for one diagram.
//
// It tracks which entities have been registered, which edges have been
// materialized, and which edges are waiting for a missing endpoint. All
// three only ever grow.
//
// The zero value is not usable - use New. Graph is not safe for concurrent
// use without external synchronization.
type Graph struct {
	r      Renderer
	logger *log.Logger

	registered map[*Entity]struct{}
	byName     map[string]*Entity
	entities   []*Entity

	linked map[EdgeKey]struct{}
	edges  []EdgeKey

	// pending maps a missing entity to the edges blocked on it, in
	// declaration order. An edge is queued under exactly one entity.
	pending map[*Entity][]EdgeKey
}

// New creates an empty registry that emits to r.
func New(r Renderer, opts ...Option) *Graph {
	g := &Graph{
		r:          r,
		logger:     log.Default(),
		registered: make(map[*Entity]struct{}),
		byName:     make(map[string]*Entity),
		linked:     make(map[EdgeKey]struct{}),
		pending:    make(map[*Entity][]EdgeKey),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewWith creates a registry and registers entities in order.
func NewWith(r Renderer, entities []*Entity, opts ...Option) (*Graph, error) {
	g := New(r, opts...)
	for _, e := range entities {
		if err := g.Register(e); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Register adds an entity to the diagram.
//
// The entity's node is emitted first. Then every edge that was waiting on
// this entity is emitted in declaration order, and finally the entity's own
// relations (from [Entity.DeclareEdgeTo]) are processed in order.
//
// Returns INVALID_ENTITY for a nil entity or one not built by [NewEntity],
// and DUPLICATE_ENTITY if the
// entity, or another entity with the same name, is already registered.
// Nothing is changed when an error is returned.
func (g *Graph) Register(e *Entity) error {
	if e == nil {
		return errors.New(errors.ErrCodeInvalidEntity, "cannot register a nil entity")
	}
	if e.index == nil {
		return errors.New(errors.ErrCodeInvalidEntity, "entity %q was not created with NewEntity", e.name)
	}
	if g.Registered(e) {
		return errors.New(errors.ErrCodeDuplicateEntity, "entity %s is already registered", e.name)
	}
	if _, taken := g.byName[e.name]; taken {
		return errors.New(errors.ErrCodeDuplicateEntity, "another entity named %s is already registered", e.name)
	}

	g.r.EmitNode(e.name, e.Label())
	g.registered[e] = struct{}{}
	g.byName[e.name] = e
	g.entities = append(g.entities, e)
	e.sealed = true
	observability.Graph().OnEntityRegistered(e.name, len(e.fields))

	if waiting, ok := g.pending[e]; ok {
		g.logger.Debug("flushing deferred edges", "entity", e.name, "count", len(waiting))
		for _, key := range waiting {
			g.materialize(key)
		}
		delete(g.pending, e)
	}

	for _, rel := range e.relations {
		if err := g.addEdge(rel.From, rel.To, rel.Field); err != nil {
			// Fields were checked by DeclareEdgeTo and are immutable.
			return errors.Wrap(errors.ErrCodeInternal, err, "entity %s", e.name)
		}
	}
	return nil
}

// DeclareEdge adds an edge between two registered entities, anchored at
// field of src (or src as a whole when field is empty) and at dst as a
// whole.
//
// Returns UNREGISTERED_ENTITY if either entity is not registered with this
// graph and UNKNOWN_FIELD if src has no such field. Declaring an edge that
// already exists is not an error.
func (g *Graph) DeclareEdge(src, dst *Entity, field string) error {
	if src == nil || dst == nil {
		return errors.New(errors.ErrCodeInvalidEntity, "edge endpoints must not be nil")
	}
	if !g.Registered(src) {
		return errors.New(errors.ErrCodeUnregisteredEntity, "source entity %s is not registered", src.name)
	}
	if !g.Registered(dst) {
		return errors.New(errors.ErrCodeUnregisteredEntity, "destination entity %s is not registered", dst.name)
	}
	return g.addEdge(src, dst, field)
}

// addEdge resolves the anchors of an edge and emits it, or queues it under
// the first missing endpoint. The source is checked first; if it is
// missing the destination is not looked at.
func (g *Graph) addEdge(src, dst *Entity, field string) error {
	from := src.SelfAnchor()
	if field != "" {
		a, err := src.FieldAnchor(field)
		if err != nil {
			return err
		}
		from = a
	}
	key := EdgeKey{From: from, To: dst.SelfAnchor()}

	if _, ok := g.linked[key]; ok {
		g.logger.Debug("dropping duplicate edge", "from", key.From, "to", key.To)
		observability.Graph().OnEdgeDuplicate(string(key.From), string(key.To))
		return nil
	}

	switch {
	case !g.Registered(src):
		g.enqueue(src, key)
	case !g.Registered(dst):
		g.enqueue(dst, key)
	default:
		g.materialize(key)
	}
	return nil
}

func (g *Graph) enqueue(blocker *Entity, key EdgeKey) {
	g.pending[blocker] = append(g.pending[blocker], key)
	g.logger.Debug("deferring edge", "from", key.From, "to", key.To, "waiting_on", blocker.name)
	observability.Graph().OnEdgeDeferred(string(key.From), string(key.To), blocker.name)
}

// materialize emits an edge and records it. The same key can be queued
// more than once before its first emission, so the linked set is checked
// again here.
func (g *Graph) materialize(key EdgeKey) {
	if _, ok := g.linked[key]; ok {
		observability.Graph().OnEdgeDuplicate(string(key.From), string(key.To))
		return
	}
	g.r.EmitEdge(key.From, key.To)
	g.linked[key] = struct{}{}
	g.edges = append(g.edges, key)
	observability.Graph().OnEdgeEmitted(string(key.From), string(key.To))
}

// Registered reports whether e has been registered with this graph.
func (g *Graph) Registered(e *Entity) bool {
	_, ok := g.registered[e]
	return ok
}

// Lookup returns the registered entity with the given name.
func (g *Graph) Lookup(name string) (*Entity, bool) {
	e, ok := g.byName[name]
	return e, ok
}

// Entities returns the registered entities in registration order.
func (g *Graph) Entities() []*Entity {
	out := make([]*Entity, len(g.entities))
	copy(out, g.entities)
	return out
}

// Edges returns the materialized edges in emission order.
func (g *Graph) Edges() []EdgeKey {
	out := make([]EdgeKey, len(g.edges))
	copy(out, g.edges)
	return out
}

// Pending returns the edges still waiting, keyed by the name of the entity
// each one is blocked on.
func (g *Graph) Pending() map[string][]EdgeKey {
	out := make(map[string][]EdgeKey, len(g.pending))
	for e, keys := range g.pending {
		out[e.name] = append([]EdgeKey(nil), keys...)
	}
	return out
}

// PendingCount returns the number of queued edges across all blockers.
func (g *Graph) PendingCount() int {
	n := 0
	for _, keys := range g.pending {
		n += len(keys)
	}
	return n
}
