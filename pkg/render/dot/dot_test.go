package dot

import (
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/erdiagram/pkg/er"
	"github.com/matzehuels/erdiagram/pkg/errors"
)

func buildPersonStudent(t *testing.T) *Builder {
	t.Helper()
	b := New(DefaultStyle())
	person := er.MustEntity("person", "id", "name", "age")
	student := er.MustEntity("student", "id", "school", "person_id")
	if err := student.DeclareEdgeTo(person, "person_id"); err != nil {
		t.Fatal(err)
	}
	if _, err := er.NewWith(b, []*er.Entity{student, person}); err != nil {
		t.Fatal(err)
	}
	return b
}

func TestBuilder_RecordsInOrder(t *testing.T) {
	b := buildPersonStudent(t)

	nodes := b.Nodes()
	if len(nodes) != 2 || nodes[0].ID != "student" || nodes[1].ID != "person" {
		t.Errorf("Nodes() = %v, want [student person]", nodes)
	}
	edges := b.Edges()
	if len(edges) != 1 || edges[0].From != "student:person_id" || edges[0].To != "person" {
		t.Errorf("Edges() = %v, want [student:person_id -> person]", edges)
	}
}

func TestString_Basic(t *testing.T) {
	dot := buildPersonStudent(t).String()

	checks := []string{
		"digraph ER {",
		"rankdir=TB;",
		`node [shape=plaintext, fontname="Cascadia Code", fontsize=10];`,
		`"person" [label=<<table `,
		`"student" [label=<<table `,
		`"student":"person_id" -> "person";`,
	}
	for _, want := range checks {
		if !strings.Contains(dot, want) {
			t.Errorf("String() missing %q\n%s", want, dot)
		}
	}
	if strings.Index(dot, `"student" [`) > strings.Index(dot, "->") {
		t.Error("String() should list nodes before edges")
	}
}

func TestString_CustomStyle(t *testing.T) {
	b := New(Style{FontName: "Helvetica", FontSize: 12.5, RankDir: "LR"})
	dot := b.String()

	for _, want := range []string{"rankdir=LR;", `fontname="Helvetica"`, "fontsize=12.5", "shape=plaintext"} {
		if !strings.Contains(dot, want) {
			t.Errorf("String() missing %q\n%s", want, dot)
		}
	}
}

func TestFmtEndpoint(t *testing.T) {
	tests := []struct {
		anchor er.Anchor
		want   string
	}{
		{"person", `"person"`},
		{"student:person_id", `"student":"person_id"`},
	}

	for _, tt := range tests {
		if got := fmtEndpoint(tt.anchor); got != tt.want {
			t.Errorf("fmtEndpoint(%q) = %s, want %s", tt.anchor, got, tt.want)
		}
	}
}

func TestNormalizeViewBox(t *testing.T) {
	tests := []struct {
		name string
		svg  string
		want string
	}{
		{
			name: "with viewBox",
			svg:  `<svg viewBox="10 20 800 600" xmlns="http://www.w3.org/2000/svg">content</svg>`,
			want: `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 800.00 600.00" width="800" height="600">content</svg>`,
		},
		{
			name: "no viewBox",
			svg:  `<svg xmlns="http://www.w3.org/2000/svg">content</svg>`,
			want: `<svg xmlns="http://www.w3.org/2000/svg">content</svg>`,
		},
		{
			name: "zero dimensions",
			svg:  `<svg viewBox="0 0 0 0">content</svg>`,
			want: `<svg viewBox="0 0 0 0">content</svg>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeViewBox([]byte(tt.svg))
			if string(got) != tt.want {
				t.Errorf("normalizeViewBox() = %q, want %q", string(got), tt.want)
			}
		})
	}
}

func TestRender_DOTPassthrough(t *testing.T) {
	src := "digraph G { a -> b; }"
	data, err := Render(context.Background(), src, FormatDOT)
	if err != nil {
		t.Fatalf("Render(dot) error: %v", err)
	}
	if string(data) != src {
		t.Errorf("Render(dot) = %q, want %q", data, src)
	}
}

func TestRender_UnsupportedFormat(t *testing.T) {
	_, err := Render(context.Background(), "digraph G {}", "gif")
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("Render(gif) code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidFormat)
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(context.Background(), buildPersonStudent(t).String())
	if err != nil {
		t.Fatalf("RenderSVG() error: %v", err)
	}
	out := string(svg)
	if !strings.Contains(out, "<svg") {
		t.Error("RenderSVG() output missing <svg> tag")
	}
	if !strings.Contains(out, "Person") || !strings.Contains(out, "person_id") {
		t.Error("RenderSVG() output missing entity text")
	}
}

func TestRenderSVG_InvalidDOT(t *testing.T) {
	_, err := RenderSVG(context.Background(), `not valid DOT {{{`)
	if err == nil {
		t.Fatal("RenderSVG() should return error for invalid DOT")
	}
	if !errors.Is(err, errors.ErrCodeRenderFailed) {
		t.Errorf("RenderSVG() code = %v, want %v", errors.GetCode(err), errors.ErrCodeRenderFailed)
	}
}

func TestRenderPNG(t *testing.T) {
	png, err := RenderPNG(context.Background(), `digraph G { a -> b; }`)
	if err != nil {
		t.Fatalf("RenderPNG() error: %v", err)
	}
	if len(png) < 8 || string(png[1:4]) != "PNG" {
		t.Error("RenderPNG() output is not a PNG")
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		FormatSVG: "image/svg+xml",
		FormatPNG: "image/png",
		FormatPDF: "application/pdf",
		"other":   "application/octet-stream",
	}
	for format, want := range tests {
		if got := ContentType(format); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", format, got, want)
		}
	}
}
