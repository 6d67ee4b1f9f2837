// Package config loads macroweb settings.
//
// Precedence, lowest first: built-in defaults, the YAML file, a .env file,
// MACROWEB_* environment variables. Command-line flags are applied on top by
// the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no config file is named and it exists
const DefaultPath = "macroweb.yaml"

// EnvPrefix prefixes every environment override
const EnvPrefix = "MACROWEB_"

// Config is the full macroweb configuration
type Config struct {
	Browser    BrowserConfig `yaml:"browser"`
	Engine     EngineConfig  `yaml:"engine"`
	Store      StoreConfig   `yaml:"store"`
	Server     ServerConfig  `yaml:"server"`
	AI         AIConfig      `yaml:"ai"`
	Log        LogConfig     `yaml:"log"`
	PrintDir   string        `yaml:"print_dir"`
	CaptureDir string        `yaml:"capture_dir"` // Empty disables not-found captures
}

// BrowserConfig controls how the page is obtained
type BrowserConfig struct {
	URL         string        `yaml:"url"`
	RemoteURL   string        `yaml:"remote_url"`
	Headless    bool          `yaml:"headless"`
	Width       int           `yaml:"width"`
	Height      int           `yaml:"height"`
	ProfileDir  string        `yaml:"profile_dir"`
	Stealth     bool          `yaml:"stealth"`
	LoadTimeout time.Duration `yaml:"load_timeout"`
}

// EngineConfig tunes macro execution
type EngineConfig struct {
	PollInterval  time.Duration `yaml:"poll_interval"`
	WaitTimeout   time.Duration `yaml:"wait_timeout"`
	SnapshotLimit int           `yaml:"snapshot_limit"`
}

// StoreConfig selects where saved macros live
type StoreConfig struct {
	Driver        string `yaml:"driver"` // sqlite or redis
	Path          string `yaml:"path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisKey      string `yaml:"redis_key"`
}

// ServerConfig configures the message server and how clients reach it
type ServerConfig struct {
	Addr string `yaml:"addr"`
	URL  string `yaml:"url"` // When set, storage commands go through this server
}

// AIConfig picks the provider used to draft macros
type AIConfig struct {
	Provider string `yaml:"provider"` // claude or openai
	Model    string `yaml:"model"`
}

// LogConfig configures zap
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:    true,
			Width:       1280,
			Height:      720,
			LoadTimeout: 30 * time.Second,
		},
		Engine: EngineConfig{
			PollInterval:  100 * time.Millisecond,
			WaitTimeout:   3000 * time.Millisecond,
			SnapshotLimit: 500,
		},
		Store: StoreConfig{
			Driver:   "sqlite",
			Path:     "macroweb.db",
			RedisKey: "macroweb:macros",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8765",
		},
		AI: AIConfig{
			Provider: "claude",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		PrintDir: "prints",
	}
}

// Load builds the configuration from path (or DefaultPath when path is empty
// and the file exists), .env and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays MACROWEB_* variables
func (c *Config) applyEnv() error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	str("URL", &c.Browser.URL)
	str("REMOTE_URL", &c.Browser.RemoteURL)
	boolean("HEADLESS", &c.Browser.Headless)
	integer("WIDTH", &c.Browser.Width)
	integer("HEIGHT", &c.Browser.Height)
	str("PROFILE_DIR", &c.Browser.ProfileDir)
	boolean("STEALTH", &c.Browser.Stealth)
	duration("LOAD_TIMEOUT", &c.Browser.LoadTimeout)

	duration("POLL_INTERVAL", &c.Engine.PollInterval)
	duration("WAIT_TIMEOUT", &c.Engine.WaitTimeout)
	integer("SNAPSHOT_LIMIT", &c.Engine.SnapshotLimit)

	str("STORE_DRIVER", &c.Store.Driver)
	str("STORE_PATH", &c.Store.Path)
	str("REDIS_ADDR", &c.Store.RedisAddr)
	str("REDIS_PASSWORD", &c.Store.RedisPassword)
	integer("REDIS_DB", &c.Store.RedisDB)
	str("REDIS_KEY", &c.Store.RedisKey)

	str("SERVER_ADDR", &c.Server.Addr)
	str("SERVER_URL", &c.Server.URL)

	str("AI_PROVIDER", &c.AI.Provider)
	str("AI_MODEL", &c.AI.Model)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	str("PRINT_DIR", &c.PrintDir)
	str("CAPTURE_DIR", &c.CaptureDir)

	return errors.Join(errs...)
}

// Validate checks that the settings are usable
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case "sqlite", "redis":
	default:
		errs = append(errs, fmt.Errorf("store.driver must be sqlite or redis, got %q", c.Store.Driver))
	}
	if c.Store.Driver == "redis" && c.Store.RedisAddr == "" {
		errs = append(errs, errors.New("store.redis_addr is required for the redis driver"))
	}
	if c.Engine.PollInterval <= 0 {
		errs = append(errs, errors.New("engine.poll_interval must be positive"))
	}
	if c.Engine.WaitTimeout <= 0 {
		errs = append(errs, errors.New("engine.wait_timeout must be positive"))
	}
	if c.Engine.SnapshotLimit < 0 {
		errs = append(errs, errors.New("engine.snapshot_limit must not be negative"))
	}
	if c.Browser.Width < 0 || c.Browser.Height < 0 {
		errs = append(errs, errors.New("browser width and height must not be negative"))
	}
	switch c.AI.Provider {
	case "claude", "openai":
	default:
		errs = append(errs, fmt.Errorf("ai.provider must be claude or openai, got %q", c.AI.Provider))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
