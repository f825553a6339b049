// Package er builds entity-relationship diagrams.
//
// # Overview
//
// An [Entity] is a named, table-like record with an ordered field list. A
// [Graph] registers entities one at a time and materializes the
// relationships between them as edges, handing both to a [Renderer] (for
// example the Graphviz DOT builder in pkg/render/dot).
//
// # Deferred Edges
//
// Relationships may be declared before either endpoint is registered:
//
//	person := er.MustEntity("person", "id", "name", "age")
//	student := er.MustEntity("student", "id", "school", "person_id")
//	_ = student.DeclareEdgeTo(person, "person_id")
//
//	g := er.New(renderer)
//	_ = g.Register(student) // edge waits for person
//	_ = g.Register(person)  // edge emitted now
//
// An edge that cannot be emitted yet is queued under the first endpoint
// found missing, checking the source before the destination, and runs as
// soon as that entity registers. Edges are deduplicated by their resolved
// anchor pair, so declaring the same relationship twice emits one edge.
//
// # Anchors
//
// Edge endpoints are [Anchor] strings: "<entity>" for a whole entity or
// "<entity>:<field>" for one field row. Destinations are always anchored to
// the whole entity.
//
// # Concurrency
//
// Neither [Entity] nor [Graph] is safe for concurrent mutation. Each diagram
// gets its own Graph, driven by a single caller.
package er
