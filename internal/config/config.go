// Package config loads exportd's configuration from built-in defaults, a
// YAML file, and EXPORTD_-prefixed environment variables, in that order
// of increasing precedence. The surface is deliberately small:
// one listener, one export, logging, and metrics — no database, control
// plane, or Kerberos sections.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/go-nfsd/exportd/internal/bytesize"
)

// Config is exportd's complete runtime configuration.
type Config struct {
	Listen  ListenConfig  `mapstructure:"listen" yaml:"listen"`
	Export  ExportConfig  `mapstructure:"export" yaml:"export"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// IdleTimeout closes a connection that has sent no request for this
	// long. Zero disables the idle timeout.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// ShutdownTimeout bounds how long Serve waits for in-flight requests
	// to finish; past it Serve returns an error without closing the
	// connections that are still open.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// MaxFragmentSize is decoded from the file but not read by the RPC
	// layer: the fragment cap is the compiled-in rpc.MaxFragmentSize.
	MaxFragmentSize bytesize.ByteSize `mapstructure:"max_fragment_size" yaml:"max_fragment_size,omitempty"`
}

// ListenConfig is the NFS/MOUNT TCP listen address.
type ListenConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// ExportConfig describes the single directory tree this server serves.
type ExportConfig struct {
	// Path is the absolute host directory exported to NFS clients.
	Path string `mapstructure:"path" yaml:"path"`

	// Name is the path clients mount, normally equal to Path but kept
	// distinct so an operator can export /srv/data as /export.
	Name string `mapstructure:"name" yaml:"name"`

	// ReadOnly rejects every mutating NFS procedure with NFS3ERR_ROFS
	// before it reaches the FSAL.
	ReadOnly bool `mapstructure:"read_only" yaml:"read_only"`

	// Groups lists the client hosts/networks MOUNT's EXPORT procedure
	// advertises as allowed to mount this export. Empty means "everyone",
	// matching an NFS export with no access list.
	Groups []string `mapstructure:"groups" yaml:"groups,omitempty"`
}

// LoggingConfig controls internal/logger's runtime behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig configures the Prometheus HTTP listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Host    string `mapstructure:"host" yaml:"host"`
	Port    int    `mapstructure:"port" yaml:"port"`
}

// Addr returns the listen address for the NFS/MOUNT TCP listener.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Listen.Host, c.Listen.Port)
}

// MetricsAddr returns the listen address for the metrics HTTP listener.
func (c *Config) MetricsAddr() string {
	return fmt.Sprintf("%s:%d", c.Metrics.Host, c.Metrics.Port)
}

// Load reads configuration from configPath (if non-empty and the file
// exists), overlays EXPORTD_-prefixed environment variables, and fills in
// defaults for anything left unset.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("EXPORTD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		byteSizeDecodeHook(),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen.host", "0.0.0.0")
	v.SetDefault("listen.port", 2049)
	v.SetDefault("export.path", "")
	v.SetDefault("export.name", "")
	v.SetDefault("export.read_only", false)
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.host", "127.0.0.1")
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("idle_timeout", 5*time.Minute)
	v.SetDefault("shutdown_timeout", 30*time.Second)
}

// Validate rejects a configuration that would fail at startup in a
// confusing way (bad port, missing export path) rather than later.
func (c *Config) Validate() error {
	if c.Export.Path == "" {
		return fmt.Errorf("export.path is required")
	}
	if c.Listen.Port <= 0 || c.Listen.Port > 65535 {
		return fmt.Errorf("invalid listen.port %d", c.Listen.Port)
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics.port %d", c.Metrics.Port)
	}
	switch strings.ToUpper(c.Logging.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("invalid logging.level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging.format %q", c.Logging.Format)
	}
	if c.Export.Name == "" {
		c.Export.Name = c.Export.Path
	}
	return nil
}

// byteSizeDecodeHook lets config files write human-readable sizes like
// "1Gi" or "512MB" for MaxFragmentSize instead of a raw byte count.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// Save writes cfg to path in YAML form, creating parent directories as
// needed. Used by `exportd init` to write a starter configuration.
func Save(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create directory %s: %w", dir, err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
