package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Resolver    ResolverConfig    `toml:"resolver"`
	Auth        AuthConfig        `toml:"auth"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// Map returns the credentials in the form expected by [services.NewSpotifyService].
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// YouTubeConfig contains extraction settings for YouTube.
type YouTubeConfig struct {
	ProxyURL       string `toml:"proxy_url"`
	CookiesPath    string `toml:"cookies_path"`
	RequireCookies bool   `toml:"require_cookies"`
	YtDlpPath      string `toml:"ytdlp_path"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host          string   `toml:"host"`
	Port          int      `toml:"port"`
	SessionSecret string   `toml:"session_secret"`
	CookieSecure  bool     `toml:"cookie_secure"`
	CORSOrigins   []string `toml:"cors_origins"`
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ResolverConfig controls stream resolution against the extractor.
type ResolverConfig struct {
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RateLimit      float64 `toml:"rate_limit"` // extractions per second
	Burst          int     `toml:"burst"`
}

// Timeout returns the per-extraction timeout.
func (r ResolverConfig) Timeout() time.Duration {
	return seconds(r.TimeoutSeconds, 30)
}

// AuthConfig controls calls to the identity provider.
type AuthConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Timeout returns the timeout applied to token exchange, refresh, and profile calls.
func (a AuthConfig) Timeout() time.Duration {
	return seconds(a.TimeoutSeconds, 15)
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides configuration values with environment variables when set.
//
// SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET and PORT match the variables used by existing deployments.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}

	if v := getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
	if v := getenv("SPOTIFY_REDIRECT_URI"); v != "" {
		c.Credentials.Spotify.RedirectURI = v
	}
	if v := getenv("SONGSTREAM_SESSION_SECRET"); v != "" {
		c.Server.SessionSecret = v
	}
	if v := getenv("SONGSTREAM_PROXY_URL"); v != "" {
		c.Credentials.YouTube.ProxyURL = v
	}
	if v := getenv("SONGSTREAM_DATABASE"); v != "" {
		c.Database.Path = v
	}
	if v := getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

// Validate reports the first required value missing for serving requests.
//
// Called at startup so that misconfiguration fails before the listener opens.
func (c *Config) Validate() error {
	switch {
	case c.Credentials.Spotify.ClientID == "":
		return fmt.Errorf("%w: credentials.spotify.client_id", ErrMissingCredentials)
	case c.Credentials.Spotify.ClientSecret == "":
		return fmt.Errorf("%w: credentials.spotify.client_secret", ErrMissingCredentials)
	case c.Credentials.Spotify.RedirectURI == "":
		return fmt.Errorf("%w: credentials.spotify.redirect_uri", ErrInvalidConfig)
	case len(c.Server.SessionSecret) < 16:
		return fmt.Errorf("%w: server.session_secret must be at least 16 characters", ErrInvalidConfig)
	case c.Credentials.YouTube.CookiesPath == "":
		return fmt.Errorf("%w: credentials.youtube.cookies_path", ErrInvalidConfig)
	case c.Database.Path == "":
		return fmt.Errorf("%w: database.path", ErrInvalidConfig)
	case c.Server.Port <= 0:
		return fmt.Errorf("%w: server.port", ErrInvalidConfig)
	}
	return nil
}
