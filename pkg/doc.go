// Package pkg provides the core libraries for erdiagram entity-relationship
// diagrams.
//
// # Overview
//
// erdiagram turns a small schema document (entities, their fields and the
// relationships between them) into a Graphviz diagram. Relationships may be
// declared before the entities they point at exist; the graph registry
// defers them until both ends are registered. The pkg directory is
// organized into these areas:
//
//  1. [er] - Entities, anchors and the deferred-edge graph registry
//  2. [schema] - YAML/JSON/TOML schema documents and graph construction
//  3. [render/dot] - DOT generation and Graphviz rendering
//  4. [pipeline] - Orchestration (parse → build → render) with caching
//  5. [cache] - File, Redis and no-op artifact caches
//
// # Architecture
//
// The typical data flow:
//
//	Schema document (yaml, json, toml)
//	         ↓
//	    [schema] package (parse + validate)
//	         ↓
//	    [er] package (register entities, resolve deferred edges)
//	         ↓
//	    [render/dot] package (DOT source, Graphviz layout)
//	         ↓
//	    DOT/SVG/PNG/PDF/JSON output
//
// # Quick Start
//
// Build a diagram by hand:
//
//	b := dot.New(dot.DefaultStyle())
//	g := er.New(b)
//
//	person := er.MustEntity("person", "name")
//	student := er.MustEntity("student", "person_id")
//	_ = student.DeclareEdgeTo(person, "person_id")
//
//	_ = g.Register(student) // edge waits for person
//	_ = g.Register(person)  // edge is drawn now
//
//	svg, _ := dot.RenderSVG(ctx, b.String())
//
// Or run the whole pipeline on a schema document:
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, logger)
//	result, _ := runner.Execute(ctx, pipeline.Options{
//	    Schema:  data,
//	    Formats: []string{pipeline.FormatSVG},
//	})
//
// # Supporting Packages
//
// [errors] - Coded errors shared by every package (INVALID_ENTITY,
// UNKNOWN_FIELD, UNREGISTERED_ENTITY and friends).
//
// [observability] - Hooks for graph, render, cache and HTTP events. No-op by
// default.
//
// [buildinfo] - Version metadata set via ldflags.
//
// # Testing
//
//	go test ./pkg/...        # All tests
//	go test ./pkg/er/...     # Specific package
//	go test -run Example     # Examples only
//
// [er]: https://pkg.go.dev/github.com/matzehuels/erdiagram/pkg/er
// [schema]: https://pkg.go.dev/github.com/matzehuels/erdiagram/pkg/schema
// [render/dot]: https://pkg.go.dev/github.com/matzehuels/erdiagram/pkg/render/dot
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/erdiagram/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/erdiagram/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/erdiagram/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/erdiagram/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/erdiagram/pkg/buildinfo
package pkg
