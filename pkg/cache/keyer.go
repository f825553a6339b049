package cache

import "strings"

// Keyer derives cache keys from content hashes and rendering options.
type Keyer interface {
	// SchemaKey identifies the engine output (DOT source and stats) for a
	// schema document.
	SchemaKey(schemaHash string, opts SchemaKeyOpts) string

	// ArtifactKey identifies one rendered output of a DOT document.
	ArtifactKey(dotHash string, opts ArtifactKeyOpts) string
}

// SchemaKeyOpts holds the options that change what a schema produces.
type SchemaKeyOpts struct {
	Format           string  `json:"format"`
	InferForeignKeys bool    `json:"infer_fk"`
	FontName         string  `json:"font_name,omitempty"`
	FontSize         float64 `json:"font_size,omitempty"`
	RankDir          string  `json:"rankdir,omitempty"`
}

// ArtifactKeyOpts holds the options that change a rendered artifact.
type ArtifactKeyOpts struct {
	Format string `json:"format"`
}

// DefaultKeyer produces keys of the form "<kind>:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default key scheme.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// SchemaKey implements Keyer.
func (DefaultKeyer) SchemaKey(schemaHash string, opts SchemaKeyOpts) string {
	return hashKey("schema", schemaHash, opts)
}

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(dotHash string, opts ArtifactKeyOpts) string {
	opts.Format = strings.ToLower(opts.Format)
	return hashKey("artifact", dotHash, opts)
}
