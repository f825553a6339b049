package cache

// ScopedKeyer prefixes every key produced by an inner Keyer, so that several
// tenants (or several versions of the tool) can share one backend.
//
//	k := NewScopedKeyer(NewDefaultKeyer(), "erd:v1:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix. A nil inner keyer falls back
// to DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// SchemaKey generates a prefixed schema key.
func (k *ScopedKeyer) SchemaKey(schemaHash string, opts SchemaKeyOpts) string {
	return k.prefix + k.inner.SchemaKey(schemaHash, opts)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(dotHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(dotHash, opts)
}
