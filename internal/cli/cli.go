// Package cli implements the erd command-line interface.
//
// # Commands
//
//   - render: build a diagram from a schema file and write SVG, PNG, PDF, DOT or JSON
//   - inspect: print the entities, fields and edges the engine produced
//   - browse: explore a schema interactively in the terminal
//   - serve: expose rendering over HTTP
//   - cache: manage the artifact cache
//   - completion: generate shell completion scripts
//
// # Configuration
//
// Defaults come from erd.toml ($XDG_CONFIG_HOME/erdiagram/erd.toml, or the
// file named by --config). Flags override the file.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which
// includes every deferred and flushed edge. Loggers are passed through
// context.Context.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/erdiagram/pkg/buildinfo"
	"github.com/matzehuels/erdiagram/pkg/cache"
	"github.com/matzehuels/erdiagram/pkg/pipeline"
)

// appName is the application name used for directories.
const appName = "erdiagram"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	config     Config
}

// New creates a CLI that logs to w at the given level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		config: defaultConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "erd",
		Short:        "erd draws entity-relationship diagrams",
		Long:         `erd turns a schema of entities, fields and relations into an entity-relationship diagram. Relations may point at entities defined later in the file; edges are drawn as soon as both ends exist.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(c.configPath)
			if err != nil {
				return err
			}
			c.config = cfg
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/erdiagram/erd.toml)")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newRunner creates a pipeline runner backed by the configured cache.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	ch, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	keyer := cache.NewScopedKeyer(nil, c.config.Cache.Prefix)
	return pipeline.NewRunner(ch, keyer, c.Logger), nil
}

func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.config.Cache.Backend {
	case backendNone:
		return cache.NewNullCache(), nil
	case backendRedis:
		return cache.NewRedisCache(ctx, cache.RedisOptions{URL: c.config.Cache.RedisURL})
	default:
		dir, err := c.cacheDir()
		if err != nil {
			c.Logger.Warn("no cache directory, caching disabled", "error", err)
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	}
}

// cacheDir returns the configured cache directory, falling back to the XDG
// default.
func (c *CLI) cacheDir() (string, error) {
	if c.config.Cache.Dir != "" {
		return c.config.Cache.Dir, nil
	}
	return cacheDir()
}

// cacheDir returns the cache directory using XDG standard (~/.cache/erdiagram/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
