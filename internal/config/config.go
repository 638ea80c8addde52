package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// DefaultPort is the port used when none is configured or the given one is invalid.
const DefaultPort = 8999

// ErrNoDocument is returned when no document path was configured.
var ErrNoDocument = errors.New("no document path given")

// Config is the resolved runtime configuration.
type Config struct {
	Document      string        `yaml:"document"`
	Port          int           `yaml:"port"`
	Hostname      string        `yaml:"hostname"`
	Debounce      time.Duration `yaml:"debounce"`
	FollowReplace bool          `yaml:"followReplace"`
	BufferSize    int           `yaml:"bufferSize"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
	EnableCORS    bool          `yaml:"cors"`
	LogLevel      string        `yaml:"logLevel"`
	LogToFile     bool          `yaml:"logToFile"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:       DefaultPort,
		Hostname:   "127.0.0.1",
		BufferSize: 8,
		Heartbeat:  30 * time.Second,
		EnableCORS: false,
		LogLevel:   "INFO",
	}
}

// fileConfig is the on-disk shape. Pointer fields distinguish "unset" from
// zero values when merging layers.
type fileConfig struct {
	Document      string `json:"document,omitempty" yaml:"document,omitempty"`
	Port          *int   `json:"port,omitempty" yaml:"port,omitempty"`
	Hostname      string `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	Debounce      string `json:"debounce,omitempty" yaml:"debounce,omitempty"`
	FollowReplace *bool  `json:"followReplace,omitempty" yaml:"followReplace,omitempty"`
	BufferSize    *int   `json:"bufferSize,omitempty" yaml:"bufferSize,omitempty"`
	Heartbeat     string `json:"heartbeat,omitempty" yaml:"heartbeat,omitempty"`
	CORS          *bool  `json:"cors,omitempty" yaml:"cors,omitempty"`
	LogLevel      string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	LogToFile     *bool  `json:"logToFile,omitempty" yaml:"logToFile,omitempty"`
}

// configNames are the file names looked up in each config directory, in order.
var configNames = []string{"livedoc.json", "livedoc.jsonc", "livedoc.yaml", "livedoc.yml"}

// Load resolves configuration from multiple sources (priority order, later wins):
// 1. Built-in defaults
// 2. Global config (~/.config/livedoc/livedoc.{json,jsonc,yaml,yml})
// 3. Project config next to the document
// 4. LIVEDOC_CONFIG file
// 5. Environment variables
//
// A .env file in the working directory is read first, so every layer sees
// its variables; it never overrides the real environment.
// document may be empty when it is only known from a config file or
// LIVEDOC_DOCUMENT. Command-line flags are applied by the caller on top of
// the result.
func Load(document string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	cfg.Document = document
	if document == "" {
		document = os.Getenv("LIVEDOC_DOCUMENT")
	}

	loaded := make(map[string]bool)
	loadOnce := func(path string) error {
		absPath, err := filepath.Abs(path)
		if err != nil || loaded[absPath] {
			return nil
		}
		loaded[absPath] = true
		err = loadConfigFile(absPath, cfg)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	globalDir := GetPaths().Config
	for _, name := range configNames {
		if err := loadOnce(filepath.Join(globalDir, name)); err != nil {
			return nil, err
		}
	}

	if document != "" {
		if abs, err := filepath.Abs(document); err == nil {
			for _, name := range configNames {
				if err := loadOnce(filepath.Join(filepath.Dir(abs), name)); err != nil {
					return nil, err
				}
			}
		}
	}

	if configPath := os.Getenv("LIVEDOC_CONFIG"); configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadConfigFile decodes one config file, choosing the format by extension,
// and merges it into cfg.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		// Strip JSONC comments and trailing commas
		err = json.Unmarshal(jsonc.ToJSON(data), &fc)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := mergeConfig(cfg, &fc); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

// mergeConfig merges a file layer into cfg.
func mergeConfig(cfg *Config, fc *fileConfig) error {
	if fc.Document != "" {
		cfg.Document = fc.Document
	}
	if fc.Port != nil {
		cfg.Port = *fc.Port
	}
	if fc.Hostname != "" {
		cfg.Hostname = fc.Hostname
	}
	if fc.Debounce != "" {
		d, err := time.ParseDuration(fc.Debounce)
		if err != nil {
			return fmt.Errorf("invalid debounce %q: %w", fc.Debounce, err)
		}
		cfg.Debounce = d
	}
	if fc.FollowReplace != nil {
		cfg.FollowReplace = *fc.FollowReplace
	}
	if fc.BufferSize != nil {
		cfg.BufferSize = *fc.BufferSize
	}
	if fc.Heartbeat != "" {
		d, err := time.ParseDuration(fc.Heartbeat)
		if err != nil {
			return fmt.Errorf("invalid heartbeat %q: %w", fc.Heartbeat, err)
		}
		cfg.Heartbeat = d
	}
	if fc.CORS != nil {
		cfg.EnableCORS = *fc.CORS
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.LogToFile != nil {
		cfg.LogToFile = *fc.LogToFile
	}
	return nil
}

// applyEnvOverrides applies LIVEDOC_* environment variables.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LIVEDOC_DOCUMENT"); v != "" {
		cfg.Document = v
	}
	if v := os.Getenv("LIVEDOC_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid LIVEDOC_PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("LIVEDOC_HOSTNAME"); v != "" {
		cfg.Hostname = v
	}
	if v := os.Getenv("LIVEDOC_DEBOUNCE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid LIVEDOC_DEBOUNCE %q: %w", v, err)
		}
		cfg.Debounce = d
	}
	if v := os.Getenv("LIVEDOC_BUFFER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid LIVEDOC_BUFFER %q: %w", v, err)
		}
		cfg.BufferSize = n
	}
	if v := os.Getenv("LIVEDOC_CORS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid LIVEDOC_CORS %q: %w", v, err)
		}
		cfg.EnableCORS = b
	}
	if v := os.Getenv("LIVEDOC_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

// Validate checks that the configuration can be served.
func (c *Config) Validate() error {
	if c.Document == "" {
		return ErrNoDocument
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.BufferSize < 1 {
		return fmt.Errorf("buffer size must be positive, got %d", c.BufferSize)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative, got %s", c.Debounce)
	}
	if c.Heartbeat <= 0 {
		return fmt.Errorf("heartbeat must be positive, got %s", c.Heartbeat)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Hostname, c.Port)
}

// ParsePort parses a positional port argument. ok is false when arg is not a
// valid port, in which case DefaultPort is returned.
func ParsePort(arg string) (port int, ok bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(arg), 10, 16)
	if err != nil || n == 0 {
		return DefaultPort, false
	}
	return int(n), true
}

// IsPDF reports whether path has a .pdf extension.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
