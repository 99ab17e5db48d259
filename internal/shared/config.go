package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

const appName = "tunesync"

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Paths       PathsConfig       `toml:"paths"`
	Credentials CredentialsConfig `toml:"credentials"`
	Library     LibraryConfig     `toml:"library"`
	Fulfillment FulfillmentConfig `toml:"fulfillment"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
}

// PathsConfig locates the library root, collection snapshots and resolver caches.
type PathsConfig struct {
	Root  string `toml:"root"`
	Data  string `toml:"data"`
	Cache string `toml:"cache"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
	LastFM  LastFMConfig  `toml:"lastfm"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// YouTubeConfig points at the ytmusicapi proxy.
type YouTubeConfig struct {
	ProxyURL string `toml:"proxy_url"`
	AuthFile string `toml:"auth_file"`
}

// LastFMConfig contains the Last.fm API key.
type LastFMConfig struct {
	APIKey string `toml:"api_key"`
}

// LibraryConfig selects the metadata resolver backend.
type LibraryConfig struct {
	Backend         string `toml:"backend"`
	RequireVerified bool   `toml:"require_verified"`
	UserAgent       string `toml:"user_agent"`
}

// FulfillmentConfig tunes the download pipeline.
type FulfillmentConfig struct {
	Workers             int      `toml:"workers"`
	QueueSize           int      `toml:"queue_size"`
	SubmitBackoffMS     int      `toml:"submit_backoff_ms"`
	DrainTimeoutSeconds int      `toml:"drain_timeout_seconds"`
	MaxAttempts         int      `toml:"max_attempts"`
	Flatten             bool     `toml:"flatten"`
	Format              string   `toml:"format"`
	FetcherPath         string   `toml:"fetcher_path"`
	CookiesFromBrowser  string   `toml:"cookies_from_browser"`
	CurlHeadersPath     string   `toml:"curl_headers_path"`
	AllowedExtensions   []string `toml:"allowed_extensions"`
}

// SubmitBackoff is the sleep between attempts to enqueue into a full worker pool.
func (f FulfillmentConfig) SubmitBackoff() time.Duration {
	return time.Duration(f.SubmitBackoffMS) * time.Millisecond
}

// DrainTimeout bounds how long a target waits for its pool to finish.
func (f FulfillmentConfig) DrainTimeout() time.Duration {
	return time.Duration(f.DrainTimeoutSeconds) * time.Second
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains the OAuth callback server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port for the callback listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig sets the log level name (debug, info, warn, error).
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := embeddedConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	config := embeddedConfig()
	config.applyDefaults()
	return config
}

func embeddedConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// applyDefaults fills empty paths from the XDG base directories.
func (c *Config) applyDefaults() {
	if c.Paths.Root == "" {
		c.Paths.Root = filepath.Join(xdg.UserDirs.Music, appName)
	}
	if c.Paths.Data == "" {
		c.Paths.Data = filepath.Join(xdg.DataHome, appName)
	}
	if c.Paths.Cache == "" {
		c.Paths.Cache = filepath.Join(xdg.CacheHome, appName)
	}
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(c.Paths.Data, appName+".db")
	}
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	f := c.Fulfillment
	switch {
	case f.Workers <= 0:
		return fmt.Errorf("%w: fulfillment.workers must be positive", ErrInvalidConfig)
	case f.QueueSize <= 0:
		return fmt.Errorf("%w: fulfillment.queue_size must be positive", ErrInvalidConfig)
	case f.MaxAttempts <= 0:
		return fmt.Errorf("%w: fulfillment.max_attempts must be positive", ErrInvalidConfig)
	case f.DrainTimeoutSeconds <= 0:
		return fmt.Errorf("%w: fulfillment.drain_timeout_seconds must be positive", ErrInvalidConfig)
	}
	return nil
}

// TokenPath is where the Spotify OAuth token is persisted between runs.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Paths.Data, "spotify_token.json")
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
