// Package config provides server settings.
//
// Settings are created via Load() which applies, in order:
// - Built-in defaults
// - An optional YAML or TOML file (chosen by extension)
// - Environment variables (PDFMCP_*)
// Command-line flags are applied by the caller afterwards.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Settings holds all server configuration.
type Settings struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Security SecurityConfig `yaml:"security" toml:"security"`
	Limits   LimitsConfig   `yaml:"limits" toml:"limits"`
	Cache    CacheConfig    `yaml:"cache" toml:"cache"`
	Engine   EngineConfig   `yaml:"engine" toml:"engine"`
	Log      LogConfig      `yaml:"log" toml:"log"`
}

// ServerConfig identifies the server to MCP clients.
type ServerConfig struct {
	Name    string `yaml:"name" toml:"name"`
	Version string `yaml:"version" toml:"version"`
}

// SecurityConfig holds the sandbox and SSRF settings.
type SecurityConfig struct {
	Roots        []string `yaml:"roots" toml:"roots"`
	AllowPrivate bool     `yaml:"allow_private" toml:"allow_private"`
}

// LimitsConfig holds download and tool limits.
type LimitsConfig struct {
	MaxDownloadBytes    int64   `yaml:"max_download_bytes" toml:"max_download_bytes"`
	DownloadTimeoutSecs int     `yaml:"download_timeout_secs" toml:"download_timeout_secs"`
	DownloadAttempts    int     `yaml:"download_attempts" toml:"download_attempts"`
	DownloadRPS         float64 `yaml:"download_rps" toml:"download_rps"`
	DownloadBurst       int     `yaml:"download_burst" toml:"download_burst"`
	ToolTimeoutSecs     int     `yaml:"tool_timeout_secs" toml:"tool_timeout_secs"`
}

// CacheConfig holds the cache bounds.
type CacheConfig struct {
	MaxEntries int   `yaml:"max_entries" toml:"max_entries"`
	MaxBytes   int64 `yaml:"max_bytes" toml:"max_bytes"`
}

// EngineConfig holds worker budgets.
type EngineConfig struct {
	Workers      int `yaml:"workers" toml:"workers"`
	BatchWorkers int `yaml:"batch_workers" toml:"batch_workers"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	File   string `yaml:"file" toml:"file"`
	Pretty bool   `yaml:"pretty" toml:"pretty"`
}

// DownloadTimeout returns the download timeout as a duration.
func (l LimitsConfig) DownloadTimeout() time.Duration {
	return time.Duration(l.DownloadTimeoutSecs) * time.Second
}

// ToolTimeout returns the per-tool timeout as a duration.
func (l LimitsConfig) ToolTimeout() time.Duration {
	return time.Duration(l.ToolTimeoutSecs) * time.Second
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		Server: ServerConfig{Name: "pdfmcp", Version: "1.0.0"},
		Limits: LimitsConfig{
			MaxDownloadBytes:    100 * 1024 * 1024,
			DownloadTimeoutSecs: 60,
			DownloadAttempts:    3,
			ToolTimeoutSecs:     300,
		},
		Cache: CacheConfig{
			MaxEntries: 100,
			MaxBytes:   512 * 1024 * 1024,
		},
		Engine: EngineConfig{
			Workers:      runtime.NumCPU(),
			BatchWorkers: 4,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds settings from defaults, the optional file at path and the
// environment, then validates them.
func Load(path string) (Settings, error) {
	settings := Default()
	if path != "" {
		if err := LoadFile(path, &settings); err != nil {
			return Settings{}, err
		}
	}
	if err := ApplyEnv(&settings); err != nil {
		return Settings{}, err
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// MustLoad is Load that panics on error.
// Use this only when configuration errors should be fatal.
func MustLoad(path string) Settings {
	settings, err := Load(path)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// LoadFile decodes the file at path over settings. Fields absent from the
// file keep their current values.
func LoadFile(path string, settings *Settings) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, settings); err != nil {
			return fmt.Errorf("invalid YAML config %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), settings); err != nil {
			return fmt.Errorf("invalid TOML config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q (use .yaml, .yml or .toml)", filepath.Ext(path))
	}
	return nil
}

// ApplyEnv overrides settings from PDFMCP_* environment variables.
func ApplyEnv(s *Settings) error {
	if roots := os.Getenv("PDFMCP_ROOTS"); roots != "" {
		s.Security.Roots = splitList(roots)
	}

	var err error
	if s.Security.AllowPrivate, err = getEnvBool("PDFMCP_ALLOW_PRIVATE", s.Security.AllowPrivate); err != nil {
		return err
	}
	if s.Limits.MaxDownloadBytes, err = getEnvInt64("PDFMCP_MAX_DOWNLOAD_BYTES", s.Limits.MaxDownloadBytes); err != nil {
		return err
	}
	if s.Limits.DownloadTimeoutSecs, err = getEnvInt("PDFMCP_DOWNLOAD_TIMEOUT", s.Limits.DownloadTimeoutSecs); err != nil {
		return err
	}
	if s.Limits.DownloadAttempts, err = getEnvInt("PDFMCP_DOWNLOAD_ATTEMPTS", s.Limits.DownloadAttempts); err != nil {
		return err
	}
	if s.Limits.DownloadRPS, err = getEnvFloat64("PDFMCP_DOWNLOAD_RPS", s.Limits.DownloadRPS); err != nil {
		return err
	}
	if s.Limits.ToolTimeoutSecs, err = getEnvInt("PDFMCP_TOOL_TIMEOUT", s.Limits.ToolTimeoutSecs); err != nil {
		return err
	}
	if s.Cache.MaxEntries, err = getEnvInt("PDFMCP_CACHE_MAX_ENTRIES", s.Cache.MaxEntries); err != nil {
		return err
	}
	if s.Cache.MaxBytes, err = getEnvInt64("PDFMCP_CACHE_MAX_BYTES", s.Cache.MaxBytes); err != nil {
		return err
	}
	if s.Engine.Workers, err = getEnvInt("PDFMCP_ENGINE_WORKERS", s.Engine.Workers); err != nil {
		return err
	}
	if s.Engine.BatchWorkers, err = getEnvInt("PDFMCP_BATCH_WORKERS", s.Engine.BatchWorkers); err != nil {
		return err
	}
	if v := os.Getenv("PDFMCP_LOG_LEVEL"); v != "" {
		s.Log.Level = v
	}
	if v := os.Getenv("PDFMCP_LOG_FILE"); v != "" {
		s.Log.File = v
	}
	return nil
}

// Validate rejects settings the server cannot run with.
func (s Settings) Validate() error {
	switch {
	case s.Limits.MaxDownloadBytes <= 0:
		return fmt.Errorf("max_download_bytes must be positive, got %d", s.Limits.MaxDownloadBytes)
	case s.Limits.DownloadTimeoutSecs <= 0:
		return fmt.Errorf("download_timeout_secs must be positive, got %d", s.Limits.DownloadTimeoutSecs)
	case s.Limits.DownloadAttempts <= 0:
		return fmt.Errorf("download_attempts must be positive, got %d", s.Limits.DownloadAttempts)
	case s.Limits.DownloadRPS < 0:
		return fmt.Errorf("download_rps must not be negative, got %g", s.Limits.DownloadRPS)
	case s.Limits.ToolTimeoutSecs <= 0:
		return fmt.Errorf("tool_timeout_secs must be positive, got %d", s.Limits.ToolTimeoutSecs)
	case s.Cache.MaxEntries <= 0:
		return fmt.Errorf("cache max_entries must be positive, got %d", s.Cache.MaxEntries)
	case s.Cache.MaxBytes <= 0:
		return fmt.Errorf("cache max_bytes must be positive, got %d", s.Cache.MaxBytes)
	case s.Engine.Workers <= 0:
		return fmt.Errorf("engine workers must be positive, got %d", s.Engine.Workers)
	case s.Engine.BatchWorkers <= 0:
		return fmt.Errorf("batch workers must be positive, got %d", s.Engine.BatchWorkers)
	}
	return nil
}

// splitList splits on the OS path list separator or commas.
func splitList(val string) []string {
	fields := strings.FieldsFunc(val, func(r rune) bool {
		return r == ',' || r == os.PathListSeparator
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Environment variable helpers with proper error handling

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return b, nil
}
