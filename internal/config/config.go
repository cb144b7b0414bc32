// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/aquaally/ally/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete Ally configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Storage   StorageConfig   `toml:"storage" json:"storage"`
	Assistant AssistantConfig `toml:"assistant" json:"assistant"`
	Auth      AuthConfig      `toml:"auth" json:"auth"`
	UI        UIConfig        `toml:"ui" json:"ui"`
	Logging   LoggingConfig   `toml:"logging" json:"logging"`
	Server    ServerConfig    `toml:"server" json:"server"`
}

// StorageConfig selects the conversation table backend.
type StorageConfig struct {
	// Driver is "sqlite" (default) or "postgres"
	Driver string `toml:"driver" json:"driver"`

	// Path is the SQLite database file
	Path string `toml:"path" json:"path"`

	// DatabaseURL is the Postgres connection string
	DatabaseURL string `toml:"database_url" json:"database_url"`

	// MaxConns caps the Postgres pool (0 = pgx default)
	MaxConns int `toml:"max_conns" json:"max_conns"`
}

// AssistantConfig configures the chat completion endpoint.
type AssistantConfig struct {
	BaseURL           string  `toml:"base_url" json:"base_url"`
	APIKey            string  `toml:"api_key" json:"api_key"`
	Model             string  `toml:"model" json:"model"`
	Temperature       float64 `toml:"temperature" json:"temperature"`
	MaxTokens         int     `toml:"max_tokens" json:"max_tokens"`
	RequestsPerMinute int     `toml:"requests_per_minute" json:"requests_per_minute"`
	TimeoutSecs       int     `toml:"timeout_secs" json:"timeout_secs"`
}

// AuthConfig identifies the signed-in user. An empty UserID means signed out.
type AuthConfig struct {
	UserID      string `toml:"user_id" json:"user_id"`
	Email       string `toml:"email" json:"email"`
	DisplayName string `toml:"display_name" json:"display_name"`
	Tier        string `toml:"tier" json:"tier"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	Theme    string `toml:"theme" json:"theme"`
	Language string `toml:"language" json:"language"`

	// TypewriterCPS is the reveal rate of streamed replies (0 = off)
	TypewriterCPS int `toml:"typewriter_cps" json:"typewriter_cps"`

	// Overscan is how many messages are rendered beyond each viewport edge
	Overscan int `toml:"overscan" json:"overscan"`

	// NearBottomRows is how close to the end counts as "at the bottom"
	NearBottomRows int `toml:"near_bottom_rows" json:"near_bottom_rows"`

	SearchDebounceMs int  `toml:"search_debounce_ms" json:"search_debounce_ms"`
	Markdown         bool `toml:"markdown" json:"markdown"`
	SidebarWidth     int  `toml:"sidebar_width" json:"sidebar_width"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error
	Level string `toml:"level" json:"level"`

	// File receives logs; empty means stderr
	File string `toml:"file" json:"file"`

	// Format is "json" or "console"
	Format string `toml:"format" json:"format"`
}

// ServerConfig configures `ally serve`.
type ServerConfig struct {
	Addr                string `toml:"addr" json:"addr"`
	ShutdownTimeoutSecs int    `toml:"shutdown_timeout_secs" json:"shutdown_timeout_secs"`

	// RequestsPerMinute limits each user of the API (0 = unlimited)
	RequestsPerMinute int `toml:"requests_per_minute" json:"requests_per_minute"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	dir, err := ConfigDir()
	if err != nil {
		dir = ".ally"
	}
	return &Config{
		Version: "1",
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   filepath.Join(dir, "ally.db"),
		},
		Assistant: AssistantConfig{
			BaseURL:           "https://api.openai.com/v1",
			Model:             "gpt-4o-mini",
			Temperature:       0.7,
			MaxTokens:         1024,
			RequestsPerMinute: 20,
			TimeoutSecs:       120,
		},
		Auth: AuthConfig{
			UserID:      "local",
			DisplayName: "Aquarist",
			Tier:        "free",
		},
		UI: UIConfig{
			Theme:            "auto",
			Language:         "en",
			TypewriterCPS:    120,
			Overscan:         5,
			NearBottomRows:   3,
			SearchDebounceMs: 200,
			Markdown:         true,
			SidebarWidth:     32,
		},
		Logging: LoggingConfig{
			Level:  "info",
			File:   filepath.Join(dir, "ally.log"),
			Format: "json",
		},
		Server: ServerConfig{
			Addr:                ":8080",
			ShutdownTimeoutSecs: 10,
			RequestsPerMinute:   120,
		},
	}
}

// SetDefaults fills any zero-value field that has a non-zero default.
// Booleans and ui.overscan are left alone since false and 0 are valid
// choices; files are decoded over Default() so unset keys keep theirs.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = d.Storage.Driver
	}
	if c.Storage.Path == "" {
		c.Storage.Path = d.Storage.Path
	}

	if c.Assistant.BaseURL == "" {
		c.Assistant.BaseURL = d.Assistant.BaseURL
	}
	if c.Assistant.Model == "" {
		c.Assistant.Model = d.Assistant.Model
	}
	if c.Assistant.MaxTokens == 0 {
		c.Assistant.MaxTokens = d.Assistant.MaxTokens
	}
	if c.Assistant.TimeoutSecs == 0 {
		c.Assistant.TimeoutSecs = d.Assistant.TimeoutSecs
	}

	if c.Auth.Tier == "" {
		c.Auth.Tier = d.Auth.Tier
	}

	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.Language == "" {
		c.UI.Language = d.UI.Language
	}
	if c.UI.SearchDebounceMs == 0 {
		c.UI.SearchDebounceMs = d.UI.SearchDebounceMs
	}
	if c.UI.SidebarWidth == 0 {
		c.UI.SidebarWidth = d.UI.SidebarWidth
	}

	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}

	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.ShutdownTimeoutSecs == 0 {
		c.Server.ShutdownTimeoutSecs = d.Server.ShutdownTimeoutSecs
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the Ally configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv("ALLY_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ally"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// ActivePath returns the config file Load would read, or the TOML path when
// neither file exists.
func ActivePath() (string, error) {
	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath, nil
	}
	jsonPath, err := ConfigPathJSON()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath, nil
	}
	return tomlPath, nil
}

// ensureSecurePermissions tightens config files to 0600 since they can hold
// API keys and database credentials.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadDotEnv loads KEY=value pairs from .env files into the environment
// without overriding variables that are already set. Missing files are
// ignored. With no arguments ./.env and ~/.ally/.env are tried.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
		if dir, err := ConfigDir(); err == nil {
			paths = append(paths, filepath.Join(dir, ".env"))
		}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads configuration from the config file, trying TOML first, then
// JSON, and falling back to defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ActivePath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return finish(Default())
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path. Files ending
// in .json are decoded as JSON, everything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to path as TOML, or JSON when path ends in .json.
// Files are written 0600.
func Save(cfg *Config, path string) error {
	if strings.HasSuffix(path, ".json") {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return util.AtomicWriteFile(path, data, 0600)
	}

	var b strings.Builder
	b.WriteString("# Ally configuration file\n")
	b.WriteString("# Generated by `ally config init` - edit with care\n\n")
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks every section and returns all problems joined.
func (c *Config) Validate() error {
	var errs []error
	fail := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.Path == "" {
			fail("storage.path", "required for sqlite")
		}
	case "postgres":
		u, err := url.Parse(c.Storage.DatabaseURL)
		if c.Storage.DatabaseURL == "" || err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			fail("storage.database_url", "must be a postgres:// URL when driver is postgres")
		}
	default:
		fail("storage.driver", "invalid driver '%s', must be one of: sqlite, postgres", c.Storage.Driver)
	}
	if c.Storage.MaxConns < 0 {
		fail("storage.max_conns", "must not be negative")
	}

	if u, err := url.Parse(c.Assistant.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		fail("assistant.base_url", "must be an http(s) URL, got '%s'", c.Assistant.BaseURL)
	}
	if c.Assistant.Temperature < 0 || c.Assistant.Temperature > 2 {
		fail("assistant.temperature", "must be between 0 and 2")
	}
	if c.Assistant.MaxTokens < 0 {
		fail("assistant.max_tokens", "must not be negative")
	}
	if c.Assistant.RequestsPerMinute < 0 {
		fail("assistant.requests_per_minute", "must not be negative")
	}
	if c.Assistant.TimeoutSecs <= 0 || c.Assistant.TimeoutSecs > 600 {
		fail("assistant.timeout_secs", "must be between 1 and 600")
	}

	switch c.Auth.Tier {
	case "", "free", "plus", "gold":
	default:
		fail("auth.tier", "invalid tier '%s', must be one of: free, plus, gold", c.Auth.Tier)
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		fail("ui.theme", "invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme)
	}
	if c.UI.TypewriterCPS < 0 || c.UI.TypewriterCPS > 2000 {
		fail("ui.typewriter_cps", "must be between 0 and 2000")
	}
	if c.UI.Overscan < 0 || c.UI.Overscan > 50 {
		fail("ui.overscan", "must be between 0 and 50")
	}
	if c.UI.NearBottomRows < 0 {
		fail("ui.near_bottom_rows", "must not be negative")
	}
	if c.UI.SearchDebounceMs < 0 || c.UI.SearchDebounceMs > 5000 {
		fail("ui.search_debounce_ms", "must be between 0 and 5000")
	}
	if c.UI.SidebarWidth < 16 || c.UI.SidebarWidth > 80 {
		fail("ui.sidebar_width", "must be between 16 and 80")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		fail("logging.level", "invalid level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		fail("logging.format", "invalid format '%s', must be one of: json, console", c.Logging.Format)
	}

	if c.Server.Addr == "" {
		fail("server.addr", "required")
	}
	if c.Server.ShutdownTimeoutSecs < 0 {
		fail("server.shutdown_timeout_secs", "must not be negative")
	}
	if c.Server.RequestsPerMinute < 0 {
		fail("server.requests_per_minute", "must not be negative")
	}

	return errors.Join(errs...)
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - ALLY_STORAGE_DRIVER: overrides storage.driver
//   - ALLY_DATABASE_URL: overrides storage.database_url (and selects postgres)
//   - ALLY_API_KEY, OPENAI_API_KEY: override assistant.api_key
//   - ALLY_BASE_URL: overrides assistant.base_url
//   - ALLY_MODEL: overrides assistant.model
//   - ALLY_USER_ID: overrides auth.user_id
//   - ALLY_LOG_LEVEL: overrides logging.level
//   - ALLY_SERVER_ADDR: overrides server.addr
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("ALLY_DATABASE_URL"); v != "" {
		c.Storage.DatabaseURL = v
		c.Storage.Driver = "postgres"
	}
	if v := os.Getenv("ALLY_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Assistant.APIKey = v
	}
	if v := os.Getenv("ALLY_API_KEY"); v != "" {
		c.Assistant.APIKey = v
	}
	if v := os.Getenv("ALLY_BASE_URL"); v != "" {
		c.Assistant.BaseURL = v
	}
	if v := os.Getenv("ALLY_MODEL"); v != "" {
		c.Assistant.Model = v
	}

	if v := os.Getenv("ALLY_USER_ID"); v != "" {
		c.Auth.UserID = v
	}
	if v := os.Getenv("ALLY_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("ALLY_SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
}

// =============================================================================
// DISPLAY
// =============================================================================

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String renders the config as TOML with secrets redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Assistant.APIKey != "" {
		safe.Assistant.APIKey = "[REDACTED]"
	}
	if safe.Storage.DatabaseURL != "" {
		safe.Storage.DatabaseURL = redactURL(safe.Storage.DatabaseURL)
	}

	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(safe); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return b.String()
}

// redactURL hides the password of a connection URL.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[REDACTED]"
	}
	return u.Redacted()
}
