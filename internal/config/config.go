// Package config provides configuration for the IPTV catalog.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/savid/iptv-catalog/internal/quality"
)

// Mode selects how the playlist URL is obtained.
type Mode string

const (
	// ModeM3U uses URL as the playlist location.
	ModeM3U Mode = "m3u"
	// ModePanel builds the playlist location from a panel base URL and credentials.
	ModePanel Mode = "panel"
)

// Source describes where the playlist comes from.
type Source struct {
	Mode     Mode   `json:"mode"`
	URL      string `json:"url"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Config holds the application configuration.
type Config struct {
	// Required
	Source Source

	// Server
	BindAddr string
	Port     int
	LogLevel string

	// Data
	RefreshInterval time.Duration
	FetchTimeout    time.Duration
	CacheTTL        time.Duration
	RateLimit       int

	// State
	StateDir string

	// Playback
	Quality string
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Source:          Source{Mode: ModeM3U},
		BindAddr:        "0.0.0.0",
		Port:            8080,
		LogLevel:        "info",
		RefreshInterval: 6 * time.Hour,
		FetchTimeout:    2 * time.Minute,
		CacheTTL:        5 * time.Minute,
		RateLimit:       5,
		StateDir:        "./state",
		Quality:         string(quality.Auto),
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Source.Validate(); err != nil {
		return err
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.RefreshInterval <= 0 {
		return errors.New("refresh interval must be positive")
	}

	if c.FetchTimeout <= 0 {
		return errors.New("fetch timeout must be positive")
	}

	if c.CacheTTL < 0 {
		return errors.New("cache ttl must not be negative")
	}

	if c.RateLimit < 0 {
		return errors.New("rate limit must not be negative")
	}

	if c.StateDir == "" {
		return errors.New("--state-dir is required")
	}

	if _, err := quality.Parse(c.Quality); err != nil {
		return fmt.Errorf("invalid quality: %w", err)
	}

	return nil
}

// ListenAddr returns the full listen address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.Port)
}

// Validate checks the source for errors.
func (s Source) Validate() error {
	switch s.Mode {
	case ModeM3U, ModePanel:
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModeM3U, ModePanel, s.Mode)
	}

	if strings.TrimSpace(s.URL) == "" {
		return errors.New("--url is required")
	}

	u, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must use http or https, got %q", u.Scheme)
	}

	if s.Mode == ModePanel {
		if strings.TrimSpace(s.Username) == "" {
			return errors.New("--username is required in panel mode")
		}

		if strings.TrimSpace(s.Password) == "" {
			return errors.New("--password is required in panel mode")
		}
	}

	return nil
}

// PlaylistURL returns the URL the playlist is fetched from. In panel mode it
// is <base>/get.php with the credentials and m3u_plus/ts output parameters.
func (s Source) PlaylistURL() string {
	if s.Mode != ModePanel {
		return s.URL
	}

	return fmt.Sprintf("%s/get.php?username=%s&password=%s&type=m3u_plus&output=ts",
		strings.TrimRight(strings.TrimSpace(s.URL), "/"),
		url.QueryEscape(s.Username),
		url.QueryEscape(s.Password),
	)
}
