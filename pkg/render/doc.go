// Package render provides output conversion for entity-relationship diagrams.
//
// # Overview
//
// Diagrams are built as Graphviz DOT by the [dot] subpackage and laid out
// by Graphviz itself. This package holds the format conversions that
// Graphviz does not do in-process:
//
//   - SVG to PDF via the external rsvg-convert tool (from librsvg)
//
//	svg, err := dot.RenderSVG(ctx, src)
//	pdf, err := render.ToPDF(svg)
//
// [dot]: github.com/matzehuels/erdiagram/pkg/render/dot
package render
