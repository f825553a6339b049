// Package pipeline turns schema documents into rendered ER diagrams.
//
// The pipeline has two stages:
//
//  1. Build: parse the schema, run it through the [er] engine and capture
//     the resulting DOT source together with a [Document] describing what
//     was registered and linked
//  2. Render: produce each requested output format from the DOT source
//
// Both stages are cached. Build output is keyed by the schema bytes and the
// options that affect it; rendered artifacts are keyed by the hash of the
// DOT source, so two schemas producing the same diagram share artifacts.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Schema:       data,
//	    SchemaFormat: "yaml",
//	    Formats:      []string{"svg", "dot"},
//	})
//	if err != nil {
//	    return err
//	}
//	svg := result.Artifacts["svg"]
//
// The CLI and the HTTP server both go through [Runner], so caching and
// validation behave the same everywhere.
//
// [er]: github.com/matzehuels/erdiagram/pkg/er
package pipeline

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/erdiagram/pkg/cache"
	"github.com/matzehuels/erdiagram/pkg/errors"
	"github.com/matzehuels/erdiagram/pkg/render/dot"
	"github.com/matzehuels/erdiagram/pkg/schema"
)

// Output formats.
const (
	FormatDOT  = dot.FormatDOT
	FormatSVG  = dot.FormatSVG
	FormatPNG  = dot.FormatPNG
	FormatPDF  = dot.FormatPDF
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatDOT:  true,
	FormatSVG:  true,
	FormatPNG:  true,
	FormatPDF:  true,
	FormatJSON: true,
}

// ValidRankDirs is the set of supported Graphviz rank directions.
var ValidRankDirs = map[string]bool{
	"TB": true,
	"LR": true,
	"BT": true,
	"RL": true,
}

// Options configures one pipeline run.
type Options struct {
	// Schema is the raw schema document.
	Schema []byte `json:"-"`

	// SchemaFormat is json, toml or yaml.
	SchemaFormat string `json:"schema_format"`

	// Formats lists the outputs to produce. Defaults to svg.
	Formats []string `json:"formats,omitempty"`

	// InferForeignKeys links <entity>_id and <entity>_idx fields to the
	// entity they name.
	InferForeignKeys bool `json:"infer_fk,omitempty"`

	// Style holds the diagram-level node attributes. Zero fields take the
	// defaults from dot.DefaultStyle.
	Style dot.Style `json:"style"`

	// Refresh bypasses cached results. Fresh results are still written back.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`

	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Document describes the registered entities and materialized edges.
	Document *Document

	// DOT is the Graphviz source of the diagram.
	DOT string

	// DOTHash is the content hash of DOT, used for artifact cache keys.
	DOTHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	EntityCount  int
	EdgeCount    int
	PendingCount int
	BuildTime    time.Duration
	RenderTime   time.Duration
}

// CacheInfo tracks cache hits for each stage.
type CacheInfo struct {
	BuildHit  bool // document and DOT came from cache
	RenderHit bool // every artifact came from cache
}

// ValidateFormat checks that a format is supported. Formats are
// case-sensitive.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat,
			"invalid format: %q (must be one of: %s)", format, strings.Join(SupportedFormats(), ", "))
	}
	return nil
}

// ValidateFormats checks that all formats are supported.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// SupportedFormats returns the valid format names in sorted order.
func SupportedFormats() []string {
	out := make([]string, 0, len(ValidFormats))
	for f := range ValidFormats {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// ParseFormats splits a comma-separated format list, trimming blanks and
// dropping duplicates. An empty string yields the default format.
func ParseFormats(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{FormatSVG}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// ValidateAndSetDefaults checks the options and fills in defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if len(o.Schema) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "schema is required")
	}
	if o.SchemaFormat == "" {
		o.SchemaFormat = schema.FormatYAML
	}
	o.SchemaFormat = strings.ToLower(o.SchemaFormat)
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.Style = o.Style.WithDefaults()
	if !ValidRankDirs[o.Style.RankDir] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid rank direction: %q (must be one of: TB, LR, BT, RL)", o.Style.RankDir)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// SchemaKeyOpts returns cache key options for the build stage.
func (o *Options) SchemaKeyOpts() cache.SchemaKeyOpts {
	return cache.SchemaKeyOpts{
		Format:           o.SchemaFormat,
		InferForeignKeys: o.InferForeignKeys,
		FontName:         o.Style.FontName,
		FontSize:         o.Style.FontSize,
		RankDir:          o.Style.RankDir,
	}
}

// ArtifactKeyOpts returns cache key options for one rendered format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{Format: format}
}

// String summarises the options for log lines.
func (o Options) String() string {
	return fmt.Sprintf("format=%s outputs=%s infer_fk=%t", o.SchemaFormat, strings.Join(o.Formats, ","), o.InferForeignKeys)
}
