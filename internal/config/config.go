package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Client  ClientConfig
	Display DisplayConfig
	Server  ServerConfig
	Storage StorageConfig
	Logging LoggingConfig
}

type ClientConfig struct {
	StatsURL          string `toml:"stats_url"`
	RefreshIntervalMS int    `toml:"refresh_interval_ms"`
	RefreshingMinMS   int    `toml:"refreshing_min_ms"`
}

type DisplayConfig struct {
	Locale         string `toml:"locale"`
	MaxGridColumns int    `toml:"max_grid_columns"`
}

type ServerConfig struct {
	Bind        string `toml:"bind"`
	HTTPPort    int    `toml:"http_port"`
	GRPCPort    int    `toml:"grpc_port"`
	RecentLimit int    `toml:"recent_limit"`
}

type StorageConfig struct {
	DBPath         string `toml:"db_path"`
	RetentionDays  int    `toml:"retention_days"`
	MemoryCapacity int    `toml:"memory_capacity"`
}

type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

type LoadResult struct {
	Config   Config
	Warnings []string
}

// DefaultConfig returns the built-in settings: a 5 s refresh against the
// local stats server on port 9191.
func DefaultConfig() Config {
	return Config{
		Client: ClientConfig{
			StatsURL:          "http://127.0.0.1:9191/api/stats",
			RefreshIntervalMS: 5000,
			RefreshingMinMS:   500,
		},
		Display: DisplayConfig{
			Locale:         "zh-CN",
			MaxGridColumns: 4,
		},
		Server: ServerConfig{
			Bind:        "127.0.0.1",
			HTTPPort:    9191,
			GRPCPort:    4317,
			RecentLimit: 20,
		},
		Storage: StorageConfig{
			DBPath:         "~/.local/share/tooltop/usage_stats.db",
			RetentionDays:  90,
			MemoryCapacity: 1000,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "~/.local/share/tooltop/tooltop.log",
		},
	}
}

var knownTopLevel = map[string]bool{
	"client":  true,
	"display": true,
	"server":  true,
	"storage": true,
	"logging": true,
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "tooltop", "config.toml")
}

func Load() (*LoadResult, error) {
	return LoadFrom(DefaultConfigPath())
}

func LoadFrom(path string) (*LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &LoadResult{Config: DefaultConfig()}, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromString(string(data))
}

func LoadFromString(data string) (*LoadResult, error) {
	result := &LoadResult{Config: DefaultConfig()}

	if data == "" {
		return result, nil
	}

	var raw map[string]any
	if _, err := toml.Decode(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	for key := range raw {
		if !knownTopLevel[key] {
			result.Warnings = append(result.Warnings, fmt.Sprintf("unknown config key: %q", key))
		}
	}

	var tf tomlFile
	if _, err := toml.Decode(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	mergeFromRaw(&result.Config, &tf, raw)

	if err := validate(&result.Config); err != nil {
		return nil, err
	}

	return result, nil
}

type tomlFile struct {
	Client  *ClientConfig  `toml:"client"`
	Display *DisplayConfig `toml:"display"`
	Server  *ServerConfig  `toml:"server"`
	Storage *StorageConfig `toml:"storage"`
	Logging *LoggingConfig `toml:"logging"`
}

// mergeFromRaw copies only the keys present in the file so that omitted
// keys keep their defaults, including zero-valued overrides.
func mergeFromRaw(cfg *Config, tf *tomlFile, raw map[string]any) {
	if tf.Client != nil {
		if section, ok := rawSection(raw, "client"); ok {
			if _, exists := section["stats_url"]; exists {
				cfg.Client.StatsURL = tf.Client.StatsURL
			}
			if _, exists := section["refresh_interval_ms"]; exists {
				cfg.Client.RefreshIntervalMS = tf.Client.RefreshIntervalMS
			}
			if _, exists := section["refreshing_min_ms"]; exists {
				cfg.Client.RefreshingMinMS = tf.Client.RefreshingMinMS
			}
		}
	}
	if tf.Display != nil {
		if section, ok := rawSection(raw, "display"); ok {
			if _, exists := section["locale"]; exists {
				cfg.Display.Locale = tf.Display.Locale
			}
			if _, exists := section["max_grid_columns"]; exists {
				cfg.Display.MaxGridColumns = tf.Display.MaxGridColumns
			}
		}
	}
	if tf.Server != nil {
		if section, ok := rawSection(raw, "server"); ok {
			if _, exists := section["bind"]; exists {
				cfg.Server.Bind = tf.Server.Bind
			}
			if _, exists := section["http_port"]; exists {
				cfg.Server.HTTPPort = tf.Server.HTTPPort
			}
			if _, exists := section["grpc_port"]; exists {
				cfg.Server.GRPCPort = tf.Server.GRPCPort
			}
			if _, exists := section["recent_limit"]; exists {
				cfg.Server.RecentLimit = tf.Server.RecentLimit
			}
		}
	}
	if tf.Storage != nil {
		if section, ok := rawSection(raw, "storage"); ok {
			if _, exists := section["db_path"]; exists {
				cfg.Storage.DBPath = tf.Storage.DBPath
			}
			if _, exists := section["retention_days"]; exists {
				cfg.Storage.RetentionDays = tf.Storage.RetentionDays
			}
			if _, exists := section["memory_capacity"]; exists {
				cfg.Storage.MemoryCapacity = tf.Storage.MemoryCapacity
			}
		}
	}
	if tf.Logging != nil {
		if section, ok := rawSection(raw, "logging"); ok {
			if _, exists := section["level"]; exists {
				cfg.Logging.Level = tf.Logging.Level
			}
			if _, exists := section["file"]; exists {
				cfg.Logging.File = tf.Logging.File
			}
		}
	}
}

func rawSection(raw map[string]any, key string) (map[string]any, bool) {
	v, ok := raw[key]
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

var validLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

func validate(cfg *Config) error {
	var errs []string

	if u, err := url.Parse(cfg.Client.StatsURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("client stats_url must be an absolute URL, got %q", cfg.Client.StatsURL))
	}
	if cfg.Client.RefreshIntervalMS < 1 {
		errs = append(errs, fmt.Sprintf("refresh_interval_ms must be positive, got %d", cfg.Client.RefreshIntervalMS))
	}
	if cfg.Client.RefreshingMinMS < 0 {
		errs = append(errs, fmt.Sprintf("refreshing_min_ms must not be negative, got %d", cfg.Client.RefreshingMinMS))
	}

	if cfg.Display.Locale != "zh-CN" {
		errs = append(errs, fmt.Sprintf("display locale %q is not supported (supported: zh-CN)", cfg.Display.Locale))
	}
	if cfg.Display.MaxGridColumns < 1 {
		errs = append(errs, fmt.Sprintf("max_grid_columns must be positive, got %d", cfg.Display.MaxGridColumns))
	}

	if cfg.Server.HTTPPort < 1 || cfg.Server.HTTPPort > 65535 {
		errs = append(errs, fmt.Sprintf("http_port must be 1-65535, got %d", cfg.Server.HTTPPort))
	}
	if cfg.Server.GRPCPort < 1 || cfg.Server.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("grpc_port must be 1-65535, got %d", cfg.Server.GRPCPort))
	}
	if cfg.Server.RecentLimit < 1 {
		errs = append(errs, fmt.Sprintf("recent_limit must be positive, got %d", cfg.Server.RecentLimit))
	}

	if cfg.Storage.RetentionDays <= 0 {
		errs = append(errs, fmt.Sprintf("storage retention_days must be positive, got %d", cfg.Storage.RetentionDays))
	}
	if cfg.Storage.MemoryCapacity < 1 {
		errs = append(errs, fmt.Sprintf("storage memory_capacity must be positive, got %d", cfg.Storage.MemoryCapacity))
	}

	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("logging level must be one of debug, info, warn, error, got %q", cfg.Logging.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation error: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ExpandTilde resolves a leading "~/" against the user's home directory.
func ExpandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
