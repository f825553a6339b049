package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/erdiagram/pkg/render/dot"
)

// Cache backends selectable in erd.toml.
const (
	backendFile  = "file"
	backendRedis = "redis"
	backendNone  = "none"
)

const configFileName = "erd.toml"

// Config is the optional erd.toml file. Command-line flags override it.
//
//	formats = ["svg", "dot"]
//	infer_fk = true
//
//	[style]
//	font_name = "Helvetica"
//	font_size = 11
//	rankdir = "LR"
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//
//	[server]
//	addr = "0.0.0.0:8080"
type Config struct {
	Formats          []string     `toml:"formats"`
	InferForeignKeys bool         `toml:"infer_fk"`
	Style            StyleConfig  `toml:"style"`
	Cache            CacheConfig  `toml:"cache"`
	Server           ServerConfig `toml:"server"`
}

// StyleConfig holds diagram-level node attributes.
type StyleConfig struct {
	FontName string  `toml:"font_name"`
	FontSize float64 `toml:"font_size"`
	RankDir  string  `toml:"rankdir"`
}

// CacheConfig selects and configures the artifact cache.
type CacheConfig struct {
	Backend  string `toml:"backend"`
	Dir      string `toml:"dir"`
	RedisURL string `toml:"redis_url"`
	Prefix   string `toml:"prefix"`
}

// ServerConfig configures erd serve.
type ServerConfig struct {
	Addr         string `toml:"addr"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
}

// defaultConfig returns the configuration used when no file exists.
func defaultConfig() Config {
	return Config{
		Cache: CacheConfig{Backend: backendFile},
	}
}

// loadConfig reads path, or the default location when path is empty. A
// missing file at the default location is not an error; a missing file
// named explicitly is.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	explicit := path != ""
	if !explicit {
		dir, err := configDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(dir, configFileName)
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return defaultConfig(), nil
		}
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Cache.Backend {
	case backendFile, backendRedis, backendNone:
	default:
		return fmt.Errorf("invalid cache backend: %q (must be file, redis or none)", c.Cache.Backend)
	}
	return nil
}

// dotStyle converts the style section into renderer attributes. Zero values
// are filled in by the pipeline.
func (c Config) dotStyle() dot.Style {
	return dot.Style{
		FontName: c.Style.FontName,
		FontSize: c.Style.FontSize,
		RankDir:  c.Style.RankDir,
	}
}

// configDir returns the config directory using XDG standard
// (~/.config/erdiagram/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}
