package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const appName = "flownotes"

// Store drivers
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverRemote   = "remote"
)

// Config holds all application configuration
type Config struct {
	Store    StoreConfig    `mapstructure:"store"`
	Database DatabaseConfig `mapstructure:"database" validate:"-"`
	Editor   EditorConfig   `mapstructure:"editor"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Import   ImportConfig   `mapstructure:"import"`
	Server   ServerConfig   `mapstructure:"server"`
	Folders  []FolderConfig `mapstructure:"folders" validate:"dive"`
}

// StoreConfig selects the note store backend
type StoreConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=file postgres sqlite remote"`
	Path   string `mapstructure:"path"`
	URL    string `mapstructure:"url" validate:"omitempty,url"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
	Database string `mapstructure:"database" validate:"required"`
	Schema   string `mapstructure:"schema"`
	SSLMode  string `mapstructure:"sslmode"`
}

// EditorConfig holds editor session behaviour
type EditorConfig struct {
	AutosaveMs       int  `mapstructure:"autosave_ms" validate:"min=1"`
	PreserveBlockIDs bool `mapstructure:"preserve_block_ids"`
}

// WatchConfig holds store watcher settings
type WatchConfig struct {
	DebounceMs     int      `mapstructure:"debounce_ms" validate:"min=1"`
	IgnorePatterns []string `mapstructure:"ignore_patterns"`
}

// ImportConfig holds markdown import settings
type ImportConfig struct {
	Patterns []string `mapstructure:"patterns"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string `mapstructure:"addr" validate:"required"`
	RequestTimeoutS int    `mapstructure:"request_timeout_s" validate:"min=1"`
}

// FolderConfig is one entry of the local folder skeleton
type FolderConfig struct {
	ID       string `mapstructure:"id" validate:"required"`
	Name     string `mapstructure:"name" validate:"required"`
	ParentID string `mapstructure:"parent_id"`
}

// AutosaveDelay returns the editor debounce as a duration
func (e EditorConfig) AutosaveDelay() time.Duration {
	return time.Duration(e.AutosaveMs) * time.Millisecond
}

// RequestTimeout returns the per-request deadline
func (s ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutS) * time.Second
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, sslMode,
	)
	if d.Schema != "" {
		connStr += "&search_path=" + d.Schema + ",public"
	}
	return connStr
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: DriverFile,
			Path:   filepath.Join(getDataDir(), "flow-notes"),
		},
		Database: DatabaseConfig{
			Port:    5432,
			Schema:  appName,
			SSLMode: "require",
		},
		Editor: EditorConfig{
			AutosaveMs:       500,
			PreserveBlockIDs: true,
		},
		Watch: WatchConfig{
			DebounceMs: 200,
			IgnorePatterns: []string{
				"**/*.tmp",
				"**/.*.swp",
				"**/*~",
			},
		},
		Import: ImportConfig{
			Patterns: []string{"**/*.md"},
		},
		Server: ServerConfig{
			Addr:            ":5689",
			RequestTimeoutS: 30,
		},
	}
}

// Load reads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("store.driver", defaults.Store.Driver)
	v.SetDefault("store.path", defaults.Store.Path)
	v.SetDefault("store.url", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", defaults.Database.Port)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "")
	v.SetDefault("database.schema", defaults.Database.Schema)
	v.SetDefault("database.sslmode", defaults.Database.SSLMode)
	v.SetDefault("editor.autosave_ms", defaults.Editor.AutosaveMs)
	v.SetDefault("editor.preserve_block_ids", defaults.Editor.PreserveBlockIDs)
	v.SetDefault("watch.debounce_ms", defaults.Watch.DebounceMs)
	v.SetDefault("watch.ignore_patterns", defaults.Watch.IgnorePatterns)
	v.SetDefault("import.patterns", defaults.Import.Patterns)
	v.SetDefault("server.addr", defaults.Server.Addr)
	v.SetDefault("server.request_timeout_s", defaults.Server.RequestTimeoutS)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(getConfigDir())
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("FLOWNOTES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file: defaults and environment only
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Database.Password = os.ExpandEnv(cfg.Database.Password)
	cfg.Store.Path = expandPath(cfg.Store.Path)
	cfg.Database.Schema = SanitizeIdentifier(cfg.Database.Schema)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration. Database settings are only checked
// when the postgres driver is selected.
func (c *Config) Validate() error {
	validate := validator.New()

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	switch c.Store.Driver {
	case DriverPostgres:
		if err := validate.Struct(&c.Database); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	case DriverRemote:
		if c.Store.URL == "" {
			return fmt.Errorf("config validation failed: store.url is required for the remote driver")
		}
	case DriverFile, DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("config validation failed: store.path is required for the %s driver", c.Store.Driver)
		}
	}
	return nil
}

// ConfigDir is where Load looks for config.yaml when no path is given
func ConfigDir() string {
	return getConfigDir()
}

// getConfigDir returns the appropriate config directory for the OS
func getConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appName)
		}
		return filepath.Join(os.Getenv("USERPROFILE"), ".config", appName)
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			return filepath.Join(xdgConfig, appName)
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", appName)
	}
}

// getDataDir returns the per-user data directory the notes live under
func getDataDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return appData
		}
		return filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support")
	default:
		if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
			return xdgData
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share")
	}
}

// expandPath expands ~ and environment variables in a path
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[1:])
	}
	return os.ExpandEnv(path)
}

var (
	invalidIdentChars = regexp.MustCompile(`[^a-z0-9_]`)
	repeatedUnderDash = regexp.MustCompile(`_+`)
)

// SanitizeIdentifier converts a name into a valid PostgreSQL schema identifier.
// Lowercase letters, digits and underscores only, starting with a letter, at most 63 characters.
func SanitizeIdentifier(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")
	name = invalidIdentChars.ReplaceAllString(name, "")
	name = repeatedUnderDash.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")

	if len(name) == 0 {
		name = appName
	} else if unicode.IsDigit(rune(name[0])) {
		name = "notes_" + name
	}

	if len(name) > 63 {
		name = strings.TrimRight(name[:63], "_")
	}
	return name
}
