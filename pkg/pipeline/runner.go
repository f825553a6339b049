package pipeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/erdiagram/pkg/cache"
	"github.com/matzehuels/erdiagram/pkg/er"
	"github.com/matzehuels/erdiagram/pkg/observability"
	"github.com/matzehuels/erdiagram/pkg/render/dot"
	"github.com/matzehuels/erdiagram/pkg/schema"
)

// Cache key kinds reported to the cache hooks.
const (
	keyTypeSchema   = "schema"
	keyTypeArtifact = "artifact"
)

// Runner executes the pipeline with caching. It holds no per-run state, so
// one Runner can serve concurrent requests.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching and a nil keyer
// selects cache.DefaultKeyer.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the build and render stages.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	buildStart := time.Now()
	doc, buildHit, err := r.Build(ctx, opts)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Document: doc,
		DOT:      doc.DOT,
		DOTHash:  cache.HashString(doc.DOT),
	}
	result.Stats.BuildTime = time.Since(buildStart)
	result.Stats.EntityCount = len(doc.Entities)
	result.Stats.EdgeCount = len(doc.Edges)
	result.Stats.PendingCount = len(doc.Pending)
	result.CacheInfo.BuildHit = buildHit

	r.Logger.Info("built diagram",
		"entities", result.Stats.EntityCount,
		"edges", result.Stats.EdgeCount,
		"cached", buildHit,
		"duration", result.Stats.BuildTime)

	renderStart := time.Now()
	artifacts, renderHit, err := r.Render(ctx, doc, result.DOTHash, opts)
	if err != nil {
		return nil, err
	}
	if !slices.ContainsFunc(opts.Formats, isArtifactFormat) {
		renderHit = buildHit
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Build parses the schema and runs it through the engine, returning the
// resulting document and whether it came from the cache.
func (r *Runner) Build(ctx context.Context, opts Options) (*Document, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	key := r.Keyer.SchemaKey(cache.Hash(opts.Schema), opts.SchemaKeyOpts())
	hooks := observability.Cache()

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if doc, err := UnmarshalDocument(data); err == nil {
				hooks.OnCacheHit(ctx, keyTypeSchema)
				return doc, true, nil
			}
		} else if err != nil {
			r.Logger.Warn("cache read failed", "key", key, "error", err)
		}
		hooks.OnCacheMiss(ctx, keyTypeSchema)
	}

	doc, err := r.build(opts)
	if err != nil {
		return nil, false, err
	}

	if data, err := doc.MarshalIndent(); err == nil {
		r.store(ctx, key, keyTypeSchema, data, cache.TTLSchema)
	}
	return doc, false, nil
}

func (r *Runner) build(opts Options) (*Document, error) {
	s, err := schema.Parse(opts.Schema, opts.SchemaFormat)
	if err != nil {
		return nil, err
	}

	b := dot.New(opts.Style)
	g := er.New(b, er.WithLogger(r.Logger))
	if _, err := s.Build(g, schema.BuildOptions{InferForeignKeys: opts.InferForeignKeys}); err != nil {
		return nil, err
	}

	doc := NewDocument(g, b.String())
	for _, p := range doc.Pending {
		r.Logger.Warn("edge never materialized", "from", p.From, "to", p.To, "blocked_on", p.BlockedOn)
	}
	return doc, nil
}

// Render produces every requested format, reusing cached artifacts keyed by
// dotHash. The returned bool is true when all artifact formats came from the
// cache.
//
// JSON is the document itself, so it is marshalled from doc and never
// stored under dotHash: schemas with different relation lists can share one
// DOT source.
func (r *Runner) Render(ctx context.Context, doc *Document, dotHash string, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	hooks := observability.Cache()
	artifacts := make(map[string][]byte, len(opts.Formats))
	allHit := true

	for _, format := range opts.Formats {
		if !isArtifactFormat(format) {
			data, err := doc.MarshalIndent()
			if err != nil {
				return nil, false, fmt.Errorf("render %s: %w", format, err)
			}
			artifacts[format] = data
			continue
		}

		key := r.Keyer.ArtifactKey(dotHash, opts.ArtifactKeyOpts(format))
		if !opts.Refresh {
			if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
				hooks.OnCacheHit(ctx, keyTypeArtifact)
				artifacts[format] = data
				continue
			}
			hooks.OnCacheMiss(ctx, keyTypeArtifact)
		}
		allHit = false

		data, err := dot.Render(ctx, doc.DOT, format)
		if err != nil {
			return nil, false, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
		r.store(ctx, key, keyTypeArtifact, data, cache.TTLArtifact)
	}

	return artifacts, allHit, nil
}

// isArtifactFormat reports whether format is rendered from DOT and cached
// by DOT hash.
func isArtifactFormat(format string) bool { return format != FormatJSON }

func (r *Runner) store(ctx context.Context, key, keyType string, data []byte, ttl time.Duration) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "key", key, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
