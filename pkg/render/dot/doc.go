// Package dot renders entity-relationship diagrams with Graphviz.
//
// # Overview
//
// [Builder] implements [er.Renderer]: it records the nodes and edges a
// registry emits and writes them out as Graphviz DOT source, with each
// entity drawn as an HTML-like table whose rows carry field ports.
//
// # Usage
//
// Build the diagram, then render the DOT source:
//
//	b := dot.New(dot.DefaultStyle())
//	g := er.New(b)
//	_ = g.Register(person)
//	_ = g.Register(student)
//
//	svg, err := dot.RenderSVG(ctx, b.String())
//
// PNG output is produced by Graphviz directly; PDF goes through SVG and
// rsvg-convert (see [render.ToPDF]).
//
// # Style
//
// Diagram-level attributes (node shape, font, rank direction) are fixed
// when the [Builder] is created. The default is plaintext nodes in 10pt
// Cascadia Code, so the table markup draws the box.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process layout
// and rendering.
//
// [render.ToPDF]: github.com/matzehuels/erdiagram/pkg/render.ToPDF
package dot
