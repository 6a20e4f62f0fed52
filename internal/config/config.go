// Package config loads notiondb settings from flags, the environment, .env
// files and a YAML config file. The API token may instead live in the OS
// keyring.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Backends
const (
	BackendNotion = "notion"
	BackendLocal  = "local"
)

// EnvPrefix prefixes every environment variable, e.g. NOTIONDB_TOKEN.
const EnvPrefix = "NOTIONDB"

// Keys
const (
	KeyToken         = "token"
	KeyDatabaseID    = "database_id"
	KeyTables        = "tables"
	KeyBaseURL       = "base_url"
	KeyNotionVersion = "notion_version"
	KeyPageSize      = "page_size"
	KeyTimeout       = "timeout"
	KeyBackend       = "backend"
	KeyLocalPath     = "local_path"
	KeyRequireMatch  = "require_match"
	KeyKeepEmptyRows = "keep_empty_rows"
	KeyLogLevel      = "log_level"
)

// Config holds resolved settings.
type Config struct {
	Token         string            `json:"-"`
	DatabaseID    string            `json:"database_id,omitempty"`
	Tables        map[string]string `json:"tables,omitempty"`
	BaseURL       string            `json:"base_url"`
	NotionVersion string            `json:"notion_version"`
	PageSize      int               `json:"page_size"`
	Timeout       time.Duration     `json:"timeout"`
	Backend       string            `json:"backend"`
	LocalPath     string            `json:"local_path"`
	RequireMatch  bool              `json:"require_match"`
	KeepEmptyRows bool              `json:"keep_empty_rows"`
	LogLevel      string            `json:"log_level"`

	// ConfigFile is the config file that was read, empty if none.
	ConfigFile string `json:"config_file,omitempty"`

	// TokenSource says where Token came from: "config", "keyring" or "".
	TokenSource string `json:"token_source,omitempty"`
}

// Loader resolves a Config. Precedence, highest first: bound flags,
// environment, .env.local, .env, config file, defaults.
type Loader struct {
	v          *viper.Viper
	fs         afero.Fs
	home       string
	workDir    string
	configFile string
	tokens     TokenStore
}

// Option configures a Loader.
type Option func(*Loader)

// WithFs sets the filesystem config and .env files are read from.
// Default: the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(l *Loader) {
		l.fs = fs
	}
}

// WithHomeDir overrides the home directory. Default: go-homedir lookup.
func WithHomeDir(dir string) Option {
	return func(l *Loader) {
		l.home = dir
	}
}

// WithWorkDir sets the directory searched for .notiondb.yaml and .env files.
// Default: the current directory.
func WithWorkDir(dir string) Option {
	return func(l *Loader) {
		l.workDir = dir
	}
}

// WithConfigFile reads exactly this file instead of searching.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.configFile = path
	}
}

// WithTokenStore sets where the token is looked up when no other source
// provides one.
func WithTokenStore(store TokenStore) Option {
	return func(l *Loader) {
		l.tokens = store
	}
}

// NewLoader creates a Loader with defaults applied.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		v:       viper.New(),
		fs:      afero.NewOsFs(),
		workDir: ".",
	}
	for _, opt := range opts {
		opt(l)
	}

	l.v.SetFs(l.fs)
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	// NOTION_TOKEN is what most Notion tooling reads.
	_ = l.v.BindEnv(KeyToken, EnvPrefix+"_TOKEN", "NOTION_TOKEN")

	l.v.SetDefault(KeyBaseURL, "https://api.notion.com")
	l.v.SetDefault(KeyNotionVersion, "2022-06-28")
	l.v.SetDefault(KeyPageSize, 20)
	l.v.SetDefault(KeyTimeout, 30*time.Second)
	l.v.SetDefault(KeyBackend, BackendNotion)
	l.v.SetDefault(KeyLocalPath, "notiondb.db")
	l.v.SetDefault(KeyRequireMatch, false)
	l.v.SetDefault(KeyKeepEmptyRows, false)
	l.v.SetDefault(KeyLogLevel, "warn")
	return l
}

// Viper exposes the underlying instance so commands can bind flags.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load reads the config file and .env files and returns the merged settings.
// A missing config file is not an error.
func (l *Loader) Load() (*Config, error) {
	path, err := l.findConfigFile()
	if err != nil {
		return nil, err
	}
	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	// .env.local has higher priority than .env
	for _, name := range []string{".env", ".env.local"} {
		if err := l.mergeDotenv(filepath.Join(l.workDir, name)); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Token:         l.v.GetString(KeyToken),
		DatabaseID:    l.v.GetString(KeyDatabaseID),
		Tables:        l.v.GetStringMapString(KeyTables),
		BaseURL:       l.v.GetString(KeyBaseURL),
		NotionVersion: l.v.GetString(KeyNotionVersion),
		PageSize:      l.v.GetInt(KeyPageSize),
		Timeout:       l.v.GetDuration(KeyTimeout),
		Backend:       strings.ToLower(l.v.GetString(KeyBackend)),
		LocalPath:     l.v.GetString(KeyLocalPath),
		RequireMatch:  l.v.GetBool(KeyRequireMatch),
		KeepEmptyRows: l.v.GetBool(KeyKeepEmptyRows),
		LogLevel:      l.v.GetString(KeyLogLevel),
		ConfigFile:    path,
	}

	if cfg.Token != "" {
		cfg.TokenSource = "config"
	} else if l.tokens != nil {
		token, err := l.tokens.Get()
		if err != nil && !errors.Is(err, ErrNoToken) {
			return nil, fmt.Errorf("read token from keyring: %w", err)
		}
		if token != "" {
			cfg.Token = token
			cfg.TokenSource = "keyring"
		}
	}

	return cfg, nil
}

// findConfigFile returns the explicit file, else the first of
// ./.notiondb.yaml and ~/.config/notiondb/config.yaml that exists.
func (l *Loader) findConfigFile() (string, error) {
	if l.configFile != "" {
		if _, err := l.fs.Stat(l.configFile); err != nil {
			return "", fmt.Errorf("config file %s: %w", l.configFile, err)
		}
		return l.configFile, nil
	}

	candidates := []string{filepath.Join(l.workDir, ".notiondb.yaml")}
	home, err := l.homeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "notiondb", "config.yaml"))
	}

	for _, c := range candidates {
		if _, err := l.fs.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", nil
}

func (l *Loader) homeDir() (string, error) {
	if l.home != "" {
		return l.home, nil
	}
	return homedir.Dir()
}

// DefaultConfigPath is where WriteFile puts the user config.
func (l *Loader) DefaultConfigPath() (string, error) {
	home, err := l.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "notiondb", "config.yaml"), nil
}

// mergeDotenv merges NOTIONDB_* entries of a .env file as config values.
// The process environment still wins over them.
func (l *Loader) mergeDotenv(path string) error {
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		// Missing .env files are fine
		return nil
	}

	entries, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	values := map[string]any{}
	for key, value := range entries {
		switch {
		case strings.HasPrefix(key, EnvPrefix+"_"):
			values[strings.ToLower(strings.TrimPrefix(key, EnvPrefix+"_"))] = value
		case key == "NOTION_TOKEN":
			values[KeyToken] = value
		}
	}
	if len(values) == 0 {
		return nil
	}
	return l.v.MergeConfigMap(values)
}

// Validate checks settings that commands rely on.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendNotion:
		if c.Token == "" {
			return fmt.Errorf("no API token: set %s_TOKEN, add token to the config file or run 'notiondb auth login'", EnvPrefix)
		}
	case BackendLocal:
		if c.LocalPath == "" {
			return fmt.Errorf("local backend needs %s", KeyLocalPath)
		}
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendNotion, BackendLocal)
	}

	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("page_size must be between 1 and 100, got %d", c.PageSize)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}
