// Package config loads the runtime configuration. Values come from the
// environment (optionally seeded from a .env file) so one binary can target
// different backends.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIBaseURL       = "http://localhost:5000/api"
	DefaultRedirectURI      = "http://127.0.0.1:8765/auth/callback"
	DefaultScannerRefresh   = 300 * time.Second
	DefaultPollInterval     = 5 * time.Second
	DefaultHTTPTimeout      = 15 * time.Second
	googleAuthorizeEndpoint = "https://accounts.google.com/o/oauth2/v2/auth"
)

type Config struct {
	APIBaseURL         string
	GoogleClientID     string
	GoogleRedirectURI  string
	GoogleAuthEndpoint string
	ScannerRefresh     time.Duration
	PollInterval       time.Duration
	HTTPTimeout        time.Duration
	StorageURL         string
	StreamURL          string
	SharedTokenRefresh bool
	LogLevel           slog.Level
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, applying defaults.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		APIBaseURL:         strings.TrimRight(getenv("API_BASE_URL"), "/"),
		GoogleClientID:     getenv("GOOGLE_CLIENT_ID"),
		GoogleRedirectURI:  getenv("GOOGLE_REDIRECT_URI"),
		GoogleAuthEndpoint: googleAuthorizeEndpoint,
		StorageURL:         getenv("STORAGE_URL"),
		StreamURL:          getenv("STREAM_URL"),
		ScannerRefresh:     DefaultScannerRefresh,
		PollInterval:       DefaultPollInterval,
		HTTPTimeout:        DefaultHTTPTimeout,
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.GoogleRedirectURI == "" {
		cfg.GoogleRedirectURI = DefaultRedirectURI
	}
	if cfg.StorageURL == "" {
		cfg.StorageURL = defaultStorageURL()
	}

	if raw := getenv("SCANNER_REFRESH_SECONDS"); raw != "" {
		// invalid or non-positive values keep the default
		if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs > 0 {
			cfg.ScannerRefresh = time.Duration(secs * float64(time.Second))
		}
	}
	if raw := getenv("POLL_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid POLL_INTERVAL %q", raw)
		}
		cfg.PollInterval = d
	}
	if raw := getenv("HTTP_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid HTTP_TIMEOUT %q", raw)
		}
		cfg.HTTPTimeout = d
	}
	if raw := getenv("SHARED_TOKEN_REFRESH"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SHARED_TOKEN_REFRESH %q", raw)
		}
		cfg.SharedTokenRefresh = b
	}
	if raw := getenv("LOG_LEVEL"); raw != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(raw)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q", raw)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API_BASE_URL %q", c.APIBaseURL)
	}
	if _, err := url.Parse(c.GoogleRedirectURI); err != nil {
		return fmt.Errorf("invalid GOOGLE_REDIRECT_URI %q", c.GoogleRedirectURI)
	}
	return nil
}

func defaultStorageURL() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return "sqlite://" + filepath.Join(dir, "wealthtracker", "state.db")
}
