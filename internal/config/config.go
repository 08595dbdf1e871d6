// Package config loads toolcatalog settings from defaults, an optional
// config file and TOOLCATALOG_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/tidwall/jsonc"

	"github.com/radutopala/toolcatalog/internal/tools"
)

const (
	// PathEnv names the config file when no path is given.
	PathEnv = "TOOLCATALOG_CONFIG"

	// DefaultPath is read when neither a path nor PathEnv is set.
	DefaultPath = ".toolcatalog.json"

	envPrefix = "TOOLCATALOG"
)

// Transports accepted by server.transport.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config is the complete toolcatalog configuration.
type Config struct {
	Records string        `mapstructure:"records"`
	Server  ServerConfig  `mapstructure:"server"`
	Limits  LimitsConfig  `mapstructure:"limits"`
	Watch   WatchConfig   `mapstructure:"watch"`
	Publish PublishConfig `mapstructure:"publish"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Log     LogConfig     `mapstructure:"log"`

	// File is the config file that was read, empty when only defaults and
	// environment were used.
	File string `mapstructure:"-"`
}

type ServerConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Transport   string `mapstructure:"transport"`
	HTTPAddress string `mapstructure:"httpAddress"`
}

// LimitsConfig holds the default result limits applied when a caller
// passes none.
type LimitsConfig struct {
	List   int `mapstructure:"list"`
	Search int `mapstructure:"search"`
}

type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Debounce time.Duration `mapstructure:"debounce"`
}

type PublishConfig struct {
	OutDir string `mapstructure:"outDir"`
	Gzip   bool   `mapstructure:"gzip"`
}

// MetricsConfig enables the /metrics and /healthz listener when
// ListenAddress is set.
type MetricsConfig struct {
	ListenAddress string `mapstructure:"listenAddress"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("records", d.Records)
	v.SetDefault("server.name", d.Server.Name)
	v.SetDefault("server.version", d.Server.Version)
	v.SetDefault("server.transport", d.Server.Transport)
	v.SetDefault("server.httpAddress", d.Server.HTTPAddress)
	v.SetDefault("limits.list", d.Limits.List)
	v.SetDefault("limits.search", d.Limits.Search)
	v.SetDefault("watch.enabled", d.Watch.Enabled)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("publish.outDir", d.Publish.OutDir)
	v.SetDefault("publish.gzip", d.Publish.Gzip)
	v.SetDefault("metrics.listenAddress", d.Metrics.ListenAddress)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		Records: "tools",
		Server: ServerConfig{
			Name:        "toolcatalog",
			Version:     "0.1.0",
			Transport:   TransportStdio,
			HTTPAddress: "127.0.0.1:8080",
		},
		Limits: LimitsConfig{
			List:   tools.DefaultListLimit,
			Search: tools.DefaultSearchLimit,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Publish: PublishConfig{
			OutDir: "dist",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the config at path. An empty path falls back to
// $TOOLCATALOG_CONFIG and then DefaultPath. A missing file is not an error;
// defaults and environment overrides apply.
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path == "" {
		path = DefaultPath
	}

	v := newViper()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		v.SetConfigType(configType(path))
		if configType(path) == "json" {
			data = jsonc.ToJSON(data)
		}
		if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		path = ""
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = path

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func configType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	default:
		return "json"
	}
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []string
	if strings.TrimSpace(c.Records) == "" {
		errs = append(errs, "records must be set")
	}
	switch c.Server.Transport {
	case TransportStdio:
	case TransportHTTP:
		if c.Server.HTTPAddress == "" {
			errs = append(errs, "server.httpAddress is required for the http transport")
		}
	default:
		errs = append(errs, fmt.Sprintf("server.transport must be %q or %q, got %q", TransportStdio, TransportHTTP, c.Server.Transport))
	}
	if c.Limits.List <= 0 {
		errs = append(errs, "limits.list must be positive")
	}
	if c.Limits.Search <= 0 {
		errs = append(errs, "limits.search must be positive")
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, "watch.debounce must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}
