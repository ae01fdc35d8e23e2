// Package config manages the preloader's settings. Settings live in
// settings.json under the XDG config directory; command line flags
// override them through Checkout.
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// SettingsFile is the name of the settings file inside the config directory.
const SettingsFile = "settings.json"

// ReadOnly defines the read-only interface for Config.
// Immutable
type ReadOnly interface {
	GetConfigDir() string
	GetSettingsPath() string
	GetTimeout() time.Duration
	GetLegacyTimeout() time.Duration
	GetUserAgent() string
	GetOrigin() *url.URL
	GetConcurrency() int
	Settings() Settings
	Freeze()
	Checkout() Writable
}

// Writable defines the writable interface for Config.
// Mutable
type Writable interface {
	ReadOnly
	SetTimeout(time.Duration)
	SetLegacyTimeout(time.Duration)
	SetUserAgent(string)
	SetOrigin(string) error
	SetConcurrency(int)
	Save() error
}

// Config holds the resolved settings.
// Mutable
type Config struct {
	configDir string

	timeout       time.Duration
	legacyTimeout time.Duration
	userAgent     string
	origin        *url.URL
	concurrency   int

	frozen bool
	edited bool
}

var _ ReadOnly = (*Config)(nil)
var _ Writable = (*Config)(nil)

func (c *Config) GetConfigDir() string            { return c.configDir }
func (c *Config) GetSettingsPath() string         { return filepath.Join(c.configDir, SettingsFile) }
func (c *Config) GetTimeout() time.Duration       { return c.timeout }
func (c *Config) GetLegacyTimeout() time.Duration { return c.legacyTimeout }
func (c *Config) GetUserAgent() string            { return c.userAgent }
func (c *Config) GetConcurrency() int             { return c.concurrency }

// GetOrigin returns the page origin loads are resolved against, or nil.
func (c *Config) GetOrigin() *url.URL {
	if c.origin == nil {
		return nil
	}
	u := *c.origin
	return &u
}

// Settings returns the effective settings in their on-disk form.
func (c *Config) Settings() Settings {
	s := Settings{
		Timeout:       Duration(c.timeout),
		LegacyTimeout: Duration(c.legacyTimeout),
		UserAgent:     c.userAgent,
		Concurrency:   c.concurrency,
	}
	if c.origin != nil {
		s.Origin = c.origin.String()
	}
	return s
}

func (c *Config) SetTimeout(d time.Duration) {
	c.mustBeEditable()
	if d > 0 {
		c.timeout = d
	}
}

func (c *Config) SetLegacyTimeout(d time.Duration) {
	c.mustBeEditable()
	if d > 0 {
		c.legacyTimeout = d
	}
}

func (c *Config) SetUserAgent(s string) {
	c.mustBeEditable()
	if s != "" {
		c.userAgent = s
	}
}

// SetOrigin parses and stores the origin. An empty string clears it.
func (c *Config) SetOrigin(s string) error {
	c.mustBeEditable()
	if s == "" {
		c.origin = nil
		return nil
	}
	u, err := parseOrigin(s)
	if err != nil {
		return err
	}
	c.origin = u
	return nil
}

func (c *Config) SetConcurrency(n int) {
	c.mustBeEditable()
	if n > 0 {
		c.concurrency = n
	}
}

// Save writes the effective settings to the settings file.
func (c *Config) Save() error {
	return writeSettings(c.GetSettingsPath(), c.Settings())
}

func (c *Config) Freeze() {
	c.frozen = true
}

func (c *Config) Checkout() Writable {
	if c.frozen {
		panic("cannot checkout from frozen config")
	}
	if c.edited {
		panic("config already checked out")
	}
	c.edited = true
	return c
}

func (c *Config) mustBeEditable() {
	if c.frozen {
		panic("cannot modify frozen config")
	}
}

// apply layers s over the defaults.
func (c *Config) apply(s Settings) error {
	if s.Timeout > 0 {
		c.timeout = time.Duration(s.Timeout)
	}
	if s.LegacyTimeout > 0 {
		c.legacyTimeout = time.Duration(s.LegacyTimeout)
	} else {
		c.legacyTimeout = c.timeout
	}
	if s.UserAgent != "" {
		c.userAgent = s.UserAgent
	}
	if s.Concurrency > 0 {
		c.concurrency = s.Concurrency
	}
	if s.Origin != "" {
		u, err := parseOrigin(s.Origin)
		if err != nil {
			return err
		}
		c.origin = u
	}
	return nil
}

func parseOrigin(s string) (*url.URL, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid origin %q: %w", s, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid origin %q: scheme and host are required", s)
	}
	return u, nil
}

// Init initializes the configuration from the XDG config directory.
func Init() (ReadOnly, error) {
	return Load(filepath.Join(xdg.ConfigHome, "preload"))
}

// Load initializes the configuration from settings.json in dir.
// A missing settings file yields the defaults.
func Load(dir string) (ReadOnly, error) {
	c := &Config{
		configDir:   dir,
		timeout:     DefaultTimeout,
		userAgent:   DefaultUserAgent(),
		concurrency: DefaultConcurrency,
	}

	s, err := readSettings(c.GetSettingsPath())
	if err != nil {
		return nil, err
	}
	if err := c.apply(s); err != nil {
		return nil, fmt.Errorf("settings %s: %w", c.GetSettingsPath(), err)
	}
	return c, nil
}
