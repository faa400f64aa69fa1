// Package config loads clustermap settings from a TOML file.
//
// Values are resolved in order: built-in defaults, then the config file,
// then command-line flags (applied by the CLI). The file lives at
// $XDG_CONFIG_HOME/clustermap/config.toml unless a path is given.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	cerrors "github.com/matzehuels/clustermap/pkg/errors"
)

// AppName names the config and state directories.
const AppName = "clustermap"

// Config holds every setting.
type Config struct {
	Layout   LayoutConfig   `toml:"layout"`
	Viewport ViewportConfig `toml:"viewport"`
	Search   SearchConfig   `toml:"search"`
	Teleport TeleportConfig `toml:"teleport"`
	Store    StoreConfig    `toml:"store"`
	Source   SourceConfig   `toml:"source"`
	Server   ServerConfig   `toml:"server"`
}

// LayoutConfig tunes the layout constants that are safe to change.
type LayoutConfig struct {
	MinSubColumnWidth float64 `toml:"min_sub_column_width" validate:"gte=120,lte=2000"`
	MaxBoxWidth       float64 `toml:"max_box_width" validate:"gte=60,lte=2000"`
	ResultRows        int     `toml:"result_rows" validate:"gte=1,lte=500"`
}

// ViewportConfig controls viewport persistence. Zoom limits are fixed.
type ViewportConfig struct {
	PersistDelay Duration `toml:"persist_delay" validate:"gte=0"`
}

// SearchConfig controls the search box.
type SearchConfig struct {
	Debounce Duration `toml:"debounce" validate:"gte=0"`
	Limit    int      `toml:"limit" validate:"gte=1,lte=100"`
}

// TeleportConfig controls the teleport highlight.
type TeleportConfig struct {
	Highlight Duration `toml:"highlight" validate:"gte=0"`
}

// StoreConfig selects where viewport and expand state are kept.
type StoreConfig struct {
	Backend    string `toml:"backend" validate:"oneof=file sqlite redis memory none"`
	Dir        string `toml:"dir"`
	SQLitePath string `toml:"sqlite_path"`
	RedisAddr  string `toml:"redis_addr" validate:"required_if=Backend redis,omitempty,hostname_port"`
	RedisDB    int    `toml:"redis_db" validate:"gte=0,lte=15"`
	Prefix     string `toml:"prefix" validate:"max=128"`
}

// SourceConfig selects where the dataset is read from.
type SourceConfig struct {
	Kind          string `toml:"kind" validate:"oneof=file mongo"`
	Path          string `toml:"path"`
	Watch         bool   `toml:"watch"`
	MongoURI      string `toml:"mongo_uri" validate:"required_if=Kind mongo"`
	MongoDatabase string `toml:"mongo_database" validate:"required_if=Kind mongo"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr           string   `toml:"addr" validate:"required"`
	AllowedOrigins []string `toml:"allowed_origins"`
	// MaxSessions caps open sessions; 0 means no cap.
	MaxSessions int `toml:"max_sessions" validate:"gte=0"`
	// IdleTimeout closes sessions nobody touched for this long; 0 keeps them.
	IdleTimeout Duration `toml:"idle_timeout" validate:"gte=0"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Layout:   LayoutConfig{MinSubColumnWidth: 260, MaxBoxWidth: 236, ResultRows: 30},
		Viewport: ViewportConfig{PersistDelay: Duration(300 * time.Millisecond)},
		Search:   SearchConfig{Debounce: Duration(150 * time.Millisecond), Limit: 10},
		Teleport: TeleportConfig{Highlight: Duration(2 * time.Second)},
		Store:    StoreConfig{Backend: "file", Dir: StateDir()},
		Source:   SourceConfig{Kind: "file"},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
			MaxSessions:    256,
			IdleTimeout:    Duration(30 * time.Minute),
		},
	}
}

// Dir returns the config directory.
func Dir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, AppName)
}

// StateDir returns the default directory for persisted map state.
func StateDir() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, AppName)
}

// Path returns the default config file path.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads path over the defaults. An empty path uses [Path]; a missing
// file yields the defaults. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = Path()
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidConfig, err, "read %s", path)
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, cerrors.Wrap(cerrors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg *Config) error {
	if path == "" {
		path = Path()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Duration is a time.Duration written as a string such as "300ms".
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalText encodes the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
