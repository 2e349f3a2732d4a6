package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Redis   RedisConfig   `yaml:"redis"`
	Cache   CacheConfig   `yaml:"cache"`
	Export  ExportConfig  `yaml:"export"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	// SandboxAddr, when set, starts a second listener that only serves raw
	// snapshot bodies. SandboxURL is its public origin.
	SandboxAddr string `yaml:"sandbox_addr"`
	SandboxURL  string `yaml:"sandbox_url"`
	AllowDelete bool   `yaml:"allow_delete"`
}

type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// RedisConfig selects the shared cache store. An empty Addr keeps the
// cache in process memory.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type CacheConfig struct {
	StaleTime time.Duration `yaml:"stale_time"`
	GCTime    time.Duration `yaml:"gc_time"`
	Retry     int           `yaml:"retry"`
	RetryBase time.Duration `yaml:"retry_base"`
}

type ExportConfig struct {
	StepDelay time.Duration `yaml:"step_delay"`
	TTL       time.Duration `yaml:"ttl"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":3000",
		},
		Backend: BackendConfig{
			URL:     "http://localhost:8000",
			Timeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			StaleTime: 5 * time.Minute,
			GCTime:    5 * time.Minute,
			Retry:     0,
			RetryBase: time.Second,
		},
		Export: ExportConfig{
			StepDelay: 200 * time.Millisecond,
			TTL:       15 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// then the environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads YAML on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables that are set.
func (c *Config) ApplyEnv() error {
	c.Server.ListenAddr = getEnv("LISTEN_ADDR", c.Server.ListenAddr)
	c.Server.SandboxAddr = getEnv("SANDBOX_ADDR", c.Server.SandboxAddr)
	c.Server.SandboxURL = getEnv("SANDBOX_URL", c.Server.SandboxURL)
	c.Backend.URL = getEnv("BACKEND_URL", c.Backend.URL)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)

	var errs []error
	if v := os.Getenv("ALLOW_DELETE"); v != "" {
		c.Server.AllowDelete = v == "true" || v == "1"
	}
	errs = append(errs,
		envInt("REDIS_DB", &c.Redis.DB),
		envInt("CACHE_RETRY", &c.Cache.Retry),
		envDuration("BACKEND_TIMEOUT", &c.Backend.Timeout),
		envDuration("CACHE_STALE_TIME", &c.Cache.StaleTime),
		envDuration("EXPORT_STEP_DELAY", &c.Export.StepDelay),
		envDuration("EXPORT_TTL", &c.Export.TTL),
	)
	return errors.Join(errs...)
}

func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.url must be an absolute URL, got %q", c.Backend.URL)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive")
	}
	if c.Server.SandboxAddr != "" && c.Server.SandboxURL == "" {
		return fmt.Errorf("server.sandbox_url is required when server.sandbox_addr is set")
	}
	if c.Server.SandboxURL != "" {
		su, err := url.Parse(c.Server.SandboxURL)
		if err != nil || su.Scheme == "" || su.Host == "" {
			return fmt.Errorf("server.sandbox_url must be an absolute URL, got %q", c.Server.SandboxURL)
		}
	}
	if c.Cache.Retry < 0 {
		return fmt.Errorf("cache.retry must not be negative")
	}
	if c.Cache.StaleTime < 0 || c.Cache.GCTime < 0 {
		return fmt.Errorf("cache durations must not be negative")
	}
	if c.Export.StepDelay < 0 {
		return fmt.Errorf("export.step_delay must not be negative")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
