package dot

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/erdiagram/pkg/er"
	"github.com/matzehuels/erdiagram/pkg/errors"
	"github.com/matzehuels/erdiagram/pkg/observability"
	"github.com/matzehuels/erdiagram/pkg/render"
)

// Output formats produced by [Render].
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
	FormatPNG = "png"
	FormatPDF = "pdf"
)

// Style holds the diagram-level attributes written once at the top of the
// DOT source.
type Style struct {
	Shape    string  // node shape; "plaintext" lets the table label draw the box
	FontName string  // node font family
	FontSize float64 // node font size in points
	RankDir  string  // TB, LR, BT or RL
}

// DefaultStyle returns plaintext nodes in 10pt Cascadia Code, laid out top
// to bottom.
func DefaultStyle() Style {
	return Style{
		Shape:    "plaintext",
		FontName: "Cascadia Code",
		FontSize: 10,
		RankDir:  "TB",
	}
}

// WithDefaults fills zero fields from DefaultStyle and upper-cases RankDir.
func (s Style) WithDefaults() Style {
	d := DefaultStyle()
	if s.Shape == "" {
		s.Shape = d.Shape
	}
	if s.FontName == "" {
		s.FontName = d.FontName
	}
	if s.FontSize <= 0 {
		s.FontSize = d.FontSize
	}
	s.RankDir = strings.ToUpper(s.RankDir)
	if s.RankDir == "" {
		s.RankDir = d.RankDir
	}
	return s
}

// Node is a recorded entity box.
type Node struct {
	ID    string
	Label string
}

// Edge is a recorded connector.
type Edge struct {
	From er.Anchor
	To   er.Anchor
}

// Builder collects emitted nodes and edges and writes them as DOT.
// Zero-valued Style fields fall back to [DefaultStyle].
type Builder struct {
	style Style
	nodes []Node
	edges []Edge
}

var _ er.Renderer = (*Builder)(nil)

// New creates a builder with a fixed style.
func New(style Style) *Builder {
	return &Builder{style: style.WithDefaults()}
}

// EmitNode implements [er.Renderer].
func (b *Builder) EmitNode(id, label string) {
	b.nodes = append(b.nodes, Node{ID: id, Label: label})
}

// EmitEdge implements [er.Renderer].
func (b *Builder) EmitEdge(from, to er.Anchor) {
	b.edges = append(b.edges, Edge{From: from, To: to})
}

// Nodes returns the recorded nodes in emission order.
func (b *Builder) Nodes() []Node { return append([]Node(nil), b.nodes...) }

// Edges returns the recorded edges in emission order.
func (b *Builder) Edges() []Edge { return append([]Edge(nil), b.edges...) }

// Style returns the builder's style.
func (b *Builder) Style() Style { return b.style }

// String returns the diagram as Graphviz DOT source.
func (b *Builder) String() string {
	var buf bytes.Buffer
	buf.WriteString("digraph ER {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", b.style.RankDir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	fmt.Fprintf(&buf, "  node [shape=%s, fontname=%q, fontsize=%s];\n",
		b.style.Shape, b.style.FontName, strconv.FormatFloat(b.style.FontSize, 'f', -1, 64))
	buf.WriteString("\n")

	for _, n := range b.nodes {
		fmt.Fprintf(&buf, "  %q [label=<%s>];\n", n.ID, n.Label)
	}

	buf.WriteString("\n")
	for _, e := range b.edges {
		fmt.Fprintf(&buf, "  %s -> %s;\n", fmtEndpoint(e.From), fmtEndpoint(e.To))
	}

	buf.WriteString("}\n")
	return buf.String()
}

// fmtEndpoint writes an anchor as a DOT node ID with an optional port.
func fmtEndpoint(a er.Anchor) string {
	if port := a.Port(); port != "" {
		return strconv.Quote(a.Node()) + ":" + strconv.Quote(port)
	}
	return strconv.Quote(a.Node())
}

// Render produces the diagram in the given format. FormatDOT returns the
// source unchanged.
func Render(ctx context.Context, dot, format string) ([]byte, error) {
	hooks := observability.Render()
	hooks.OnRenderStart(ctx, format)
	start := time.Now()

	data, err := renderFormat(ctx, dot, format)
	hooks.OnRenderComplete(ctx, format, len(data), time.Since(start), err)
	return data, err
}

func renderFormat(ctx context.Context, dot, format string) ([]byte, error) {
	switch format {
	case FormatDOT:
		return []byte(dot), nil
	case FormatSVG:
		return RenderSVG(ctx, dot)
	case FormatPNG:
		return RenderPNG(ctx, dot)
	case FormatPDF:
		svg, err := RenderSVG(ctx, dot)
		if err != nil {
			return nil, err
		}
		pdf, err := render.ToPDF(svg)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeRenderFailed, err, "convert to pdf")
		}
		return pdf, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported format: %q", format)
	}
}

// RenderSVG lays out a DOT graph with Graphviz and returns SVG bytes.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	data, err := renderGraphviz(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(data), nil
}

// RenderPNG lays out a DOT graph with Graphviz and returns PNG bytes.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return renderGraphviz(ctx, dot, graphviz.PNG)
}

func renderGraphviz(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRenderFailed, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRenderFailed, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRenderFailed, err, "render %s", format)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root svg tag so the viewBox starts at the
// origin and width/height match it. Graphviz emits points-based sizes that
// scale badly when embedded.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	// Only the root tag; nested svg elements keep their own attributes.
	loc := svgTagRe.FindIndex(svg)
	if loc == nil {
		return svg
	}
	return append(append(append([]byte(nil), svg[:loc[0]]...), newSvg...), svg[loc[1]:]...)
}

// ContentType returns the MIME type for a rendered format.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case FormatSVG:
		return "image/svg+xml"
	case FormatPNG:
		return "image/png"
	case FormatPDF:
		return "application/pdf"
	case FormatDOT:
		return "text/vnd.graphviz; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
