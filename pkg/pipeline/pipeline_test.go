package pipeline

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/erdiagram/pkg/cache"
	"github.com/matzehuels/erdiagram/pkg/errors"
	"github.com/matzehuels/erdiagram/pkg/render/dot"
)

const schoolYAML = `
entities:
  - name: student
    fields: [school, class, score, person_id]
    relations:
      - to: person
        field: person_id
  - name: person
    fields: [name, age]
`

type memCache struct {
	data map[string][]byte
	sets int
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	d, ok := c.data[key]
	return d, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.data[key] = data
	c.sets++
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"dot", false},
		{"svg", false},
		{"png", false},
		{"pdf", false},
		{"json", false},
		{"invalid", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("ValidateFormat(%q) code = %v, want %v", tt.format, errors.GetCode(err), errors.ErrCodeInvalidFormat)
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"svg", "png"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}
	if err := ValidateFormats([]string{"svg", "invalid"}); err == nil {
		t.Error("Invalid format should fail")
	}
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{"svg"}},
		{"svg", []string{"svg"}},
		{"svg,png", []string{"svg", "png"}},
		{" SVG , dot ,svg,", []string{"svg", "dot"}},
	}

	for _, tt := range tests {
		got := ParseFormats(tt.in)
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("ParseFormats(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSupportedFormats(t *testing.T) {
	got := strings.Join(SupportedFormats(), ",")
	if want := "dot,json,pdf,png,svg"; got != want {
		t.Errorf("SupportedFormats() = %s, want %s", got, want)
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	opts := Options{Schema: []byte(schoolYAML)}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error: %v", err)
	}
	if opts.SchemaFormat != "yaml" {
		t.Errorf("SchemaFormat = %q, want yaml", opts.SchemaFormat)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != FormatSVG {
		t.Errorf("Formats = %v, want [svg]", opts.Formats)
	}
	if opts.Style != dot.DefaultStyle() {
		t.Errorf("Style = %+v, want %+v", opts.Style, dot.DefaultStyle())
	}
	if opts.Logger == nil {
		t.Error("Logger should default to a discard logger")
	}

	// Idempotent
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Errorf("second call error: %v", err)
	}
}

func TestValidateAndSetDefaults_Errors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"no schema", Options{}, errors.ErrCodeInvalidInput},
		{"bad format", Options{Schema: []byte("x"), Formats: []string{"gif"}}, errors.ErrCodeInvalidFormat},
		{"bad rankdir", Options{Schema: []byte("x"), Style: dot.Style{RankDir: "up"}}, errors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if !errors.Is(err, tt.code) {
				t.Errorf("ValidateAndSetDefaults() = %v, want code %v", err, tt.code)
			}
		})
	}
}

func TestRankDirCaseInsensitive(t *testing.T) {
	opts := Options{Schema: []byte("x"), Style: dot.Style{RankDir: "lr"}}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error: %v", err)
	}
	if opts.Style.RankDir != "LR" {
		t.Errorf("RankDir = %q, want LR", opts.Style.RankDir)
	}
}

func TestExecute_DOTAndJSON(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	res, err := r.Execute(context.Background(), Options{
		Schema:  []byte(schoolYAML),
		Formats: []string{FormatDOT, FormatJSON},
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if res.Stats.EntityCount != 2 || res.Stats.EdgeCount != 1 || res.Stats.PendingCount != 0 {
		t.Errorf("Stats = %+v, want 2 entities, 1 edge, 0 pending", res.Stats)
	}

	src := string(res.Artifacts[FormatDOT])
	if src != res.DOT {
		t.Error("dot artifact should equal Result.DOT")
	}
	for _, want := range []string{`"student":"person_id" -> "person";`, `"person" [label=<`} {
		if !strings.Contains(src, want) {
			t.Errorf("DOT missing %q:\n%s", want, src)
		}
	}
	// Student is registered first, so its node precedes person's.
	if strings.Index(src, `"student" [`) > strings.Index(src, `"person" [`) {
		t.Error("nodes should be emitted in registration order")
	}

	doc, err := UnmarshalDocument(res.Artifacts[FormatJSON])
	if err != nil {
		t.Fatalf("UnmarshalDocument() error: %v", err)
	}
	if len(doc.Edges) != 1 || doc.Edges[0] != (EdgeInfo{From: "student:person_id", To: "person"}) {
		t.Errorf("Edges = %v, want [student:person_id -> person]", doc.Edges)
	}
	student, ok := doc.Entity("student")
	if !ok {
		t.Fatal("Entity(student) not found")
	}
	if got := strings.Join(student.Fields, ","); got != "id,school,class,score,person_id" {
		t.Errorf("student fields = %s", got)
	}
	if in := doc.Incoming("person"); len(in) != 1 {
		t.Errorf("Incoming(person) = %v, want 1 edge", in)
	}
}

func TestExecute_InferForeignKeys(t *testing.T) {
	schema := `{"entities": [{"name": "order", "fields": ["customer_id"]}, {"name": "customer"}]}`
	r := NewRunner(nil, nil, quietLogger())

	plain, err := r.Execute(context.Background(), Options{Schema: []byte(schema), SchemaFormat: "json", Formats: []string{FormatDOT}})
	if err != nil {
		t.Fatal(err)
	}
	if plain.Stats.EdgeCount != 0 {
		t.Errorf("EdgeCount without inference = %d, want 0", plain.Stats.EdgeCount)
	}

	inferred, err := r.Execute(context.Background(), Options{Schema: []byte(schema), SchemaFormat: "json", Formats: []string{FormatDOT}, InferForeignKeys: true})
	if err != nil {
		t.Fatal(err)
	}
	if inferred.Stats.EdgeCount != 1 {
		t.Errorf("EdgeCount with inference = %d, want 1", inferred.Stats.EdgeCount)
	}
	if plain.DOTHash == inferred.DOTHash {
		t.Error("different diagrams should hash differently")
	}
}

func TestExecute_Caching(t *testing.T) {
	ctx := context.Background()
	c := newMemCache()
	r := NewRunner(c, nil, quietLogger())
	opts := Options{Schema: []byte(schoolYAML), Formats: []string{FormatDOT, FormatJSON}}

	first, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheInfo.BuildHit || first.CacheInfo.RenderHit {
		t.Errorf("first run CacheInfo = %+v, want misses", first.CacheInfo)
	}
	if c.sets != 2 {
		t.Errorf("cache sets = %d, want 2 (document + dot artifact)", c.sets)
	}

	second, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.BuildHit || !second.CacheInfo.RenderHit {
		t.Errorf("second run CacheInfo = %+v, want hits", second.CacheInfo)
	}
	if second.DOT != first.DOT {
		t.Error("cached DOT differs from fresh DOT")
	}

	opts.Refresh = true
	third, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheInfo.BuildHit || third.CacheInfo.RenderHit {
		t.Errorf("refresh CacheInfo = %+v, want misses", third.CacheInfo)
	}
}

func TestExecute_SharedArtifacts(t *testing.T) {
	ctx := context.Background()
	c := newMemCache()
	r := NewRunner(c, cache.NewScopedKeyer(nil, "test:"), quietLogger())

	// Same diagram written in two formats shares rendered artifacts.
	jsonDoc := `{"entities": [
	  {"name": "student", "fields": ["school", "class", "score", "person_id"], "relations": [{"to": "person", "field": "person_id"}]},
	  {"name": "person", "fields": ["name", "age"]}
	]}`
	if _, err := r.Execute(ctx, Options{Schema: []byte(schoolYAML), Formats: []string{FormatDOT}}); err != nil {
		t.Fatal(err)
	}
	res, err := r.Execute(ctx, Options{Schema: []byte(jsonDoc), SchemaFormat: "json", Formats: []string{FormatDOT}})
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheInfo.BuildHit {
		t.Error("different schema bytes should miss the build cache")
	}
	if !res.CacheInfo.RenderHit {
		t.Error("identical DOT should hit the artifact cache")
	}
	for k := range c.data {
		if !strings.HasPrefix(k, "test:") {
			t.Errorf("key %q missing scope prefix", k)
		}
	}
}

func TestExecute_JSONFollowsSchema(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(newMemCache(), nil, quietLogger())

	// Declaring the relation twice yields the same DOT but a different
	// document.
	twice := `
entities:
  - name: student
    fields: [school, class, score, person_id]
    relations:
      - to: person
        field: person_id
      - to: person
        field: person_id
  - name: person
    fields: [name, age]
`
	formats := []string{FormatDOT, FormatJSON}
	first, err := r.Execute(ctx, Options{Schema: []byte(schoolYAML), Formats: formats})
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Execute(ctx, Options{Schema: []byte(twice), Formats: formats})
	if err != nil {
		t.Fatal(err)
	}
	if second.DOT != first.DOT {
		t.Fatal("duplicate relation should not change the DOT")
	}
	if !second.CacheInfo.RenderHit {
		t.Error("identical DOT should reuse the dot artifact")
	}

	doc, err := UnmarshalDocument(second.Artifacts[FormatJSON])
	if err != nil {
		t.Fatalf("UnmarshalDocument() error: %v", err)
	}
	student, _ := doc.Entity("student")
	if len(student.Relations) != 2 {
		t.Errorf("json student relations = %d, want 2", len(student.Relations))
	}
	if len(doc.Edges) != 1 {
		t.Errorf("json edges = %d, want 1", len(doc.Edges))
	}
}

func TestExecute_JSONOnlyCacheInfo(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(newMemCache(), nil, quietLogger())
	opts := Options{Schema: []byte(schoolYAML), Formats: []string{FormatJSON}}

	first, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheInfo.RenderHit {
		t.Error("first json-only run should report a miss")
	}
	second, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.BuildHit || !second.CacheInfo.RenderHit {
		t.Errorf("second json-only run CacheInfo = %+v, want hits", second.CacheInfo)
	}
}

func TestExecute_SchemaErrors(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		code   errors.Code
	}{
		{"malformed", "entities: [", errors.ErrCodeInvalidSchema},
		{"missing target", "entities:\n  - name: a\n    relations: [{to: b}]\n", errors.ErrCodeNotFound},
		{"unknown field", "entities:\n  - name: a\n    relations: [{to: b, field: b_id}]\n  - name: b\n", errors.ErrCodeUnknownField},
	}

	r := NewRunner(nil, nil, quietLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Execute(context.Background(), Options{Schema: []byte(tt.schema), Formats: []string{FormatDOT}})
			if !errors.Is(err, tt.code) {
				t.Errorf("Execute() = %v, want code %v", err, tt.code)
			}
		})
	}
}

func TestExecute_SVG(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	res, err := r.Execute(context.Background(), Options{Schema: []byte(schoolYAML)})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	svg := string(res.Artifacts[FormatSVG])
	if !strings.Contains(svg, "<svg") {
		t.Error("svg artifact missing <svg> tag")
	}
	if !strings.Contains(svg, "Student") {
		t.Error("svg artifact missing capitalized entity header")
	}
}
