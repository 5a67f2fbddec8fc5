package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
	"gopkg.in/yaml.v3"
)

// Blob backends.
const (
	BlobBackendGCS       = "gcs"
	BlobBackendDirectory = "directory"
	BlobBackendMemory    = "memory"
)

const defaultMaxImageSize = "5MiB"

type Config struct {
	ListenPort      string        `yaml:"listen_port"`      // ex: ":8080"
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // ex: 5s
	RequestTimeout  time.Duration `yaml:"request_timeout"`  // per-request timeout, uploads included

	LogLevel  string `yaml:"log_level"`  // "debug" | "info" | "warn" | "error"
	PrettyLog bool   `yaml:"pretty_log"` // true => zap dev (color), false => zap prod (JSON)

	// PublicBaseURL is the externally reachable root of this service, used to
	// build image addresses for the directory and memory backends.
	PublicBaseURL string `yaml:"public_base_url"`

	// Blob storage
	BlobBackend  string `yaml:"blob_backend"`   // "gcs" | "directory" | "memory"
	Bucket       string `yaml:"bucket"`         // GCS bucket name, empty => image store unavailable
	BlobDir      string `yaml:"blob_dir"`       // base path for the directory backend
	MaxImageSize string `yaml:"max_image_size"` // human size, ex: "5MiB"

	maxImageBytes int64

	// Redis
	RedisAddr           string        `yaml:"redis_addr"`     // ex: "localhost:6379", empty => record store unavailable
	RedisUser           string        `yaml:"redis_username"` // optional
	RedisPassword       string        `yaml:"redis_password"` // optional
	RedisDB             int           `yaml:"redis_db"`
	RedisDT             time.Duration `yaml:"redis_dial_timeout"`
	RedisRT             time.Duration `yaml:"redis_read_timeout"`
	RedisWT             time.Duration `yaml:"redis_write_timeout"`
	RedisMaxWait        time.Duration `yaml:"redis_max_wait"`        // max wait between retries
	RedisPingTimeout    time.Duration `yaml:"redis_ping_timeout"`    // timeout for each ping attempt
	RedisPoolSize       int           `yaml:"redis_pool_size"`       // connection pool size
	RedisConnectTimeout time.Duration `yaml:"redis_connect_timeout"` // total time to retry connecting
	RedisRetryInterval  time.Duration `yaml:"redis_retry_interval"`  // initial wait between retries, grows exponentially
	RedisWarnThreshold  int           `yaml:"redis_warn_threshold"`  // warn after this many attempts

	AllowedCIDRS []string `yaml:"allowed_cidrs"` // optional, restrict /infra to specific IPs/CIDRs
	TrustProxy   bool     `yaml:"trust_proxy"`   // true => trust X-Forwarded-For headers
}

// MaxImageBytes is the parsed MaxImageSize.
func (c *Config) MaxImageBytes() int64 {
	return c.maxImageBytes
}

// BlobConfigured reports whether enough is known to build an image store.
func (c *Config) BlobConfigured() bool {
	switch c.BlobBackend {
	case BlobBackendGCS:
		return c.Bucket != ""
	case BlobBackendDirectory:
		return c.BlobDir != ""
	case BlobBackendMemory:
		return true
	default:
		return false
	}
}

// RecordStoreConfigured reports whether a Redis address is set.
func (c *Config) RecordStoreConfigured() bool {
	return c.RedisAddr != ""
}

// Load reads the optional YAML file named by CURATOR_CONFIG_FILE, then applies
// environment overrides and defaults. Missing store settings are not fatal:
// the service starts degraded instead.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CURATOR_CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfgCopy.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		ListenPort:      ":8080",
		ShutdownTimeout: 5 * time.Second,
		RequestTimeout:  30 * time.Second,

		LogLevel:  "info",
		PrettyLog: true,

		PublicBaseURL: "http://localhost:8080",

		BlobBackend:  BlobBackendGCS,
		BlobDir:      ".data/images",
		MaxImageSize: defaultMaxImageSize,

		RedisDT:             5 * time.Second,
		RedisRT:             3 * time.Second,
		RedisWT:             3 * time.Second,
		RedisMaxWait:        10 * time.Second,
		RedisPingTimeout:    5 * time.Second,
		RedisPoolSize:       10,
		RedisConnectTimeout: 30 * time.Second,
		RedisRetryInterval:  2 * time.Second,
		RedisWarnThreshold:  3,

		TrustProxy: true,
	}
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	// Server settings
	cfg.ListenPort = getenv("CURATOR_LISTEN_PORT", cfg.ListenPort)
	cfg.ShutdownTimeout = mustDuration("CURATOR_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.RequestTimeout = mustDuration("CURATOR_REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.PublicBaseURL = strings.TrimRight(getenv("CURATOR_PUBLIC_BASE_URL", cfg.PublicBaseURL), "/")

	// Logging
	cfg.LogLevel = getenv("CURATOR_LOG_LEVEL", cfg.LogLevel)
	cfg.PrettyLog = mustBool("CURATOR_PRETTY_LOG", cfg.PrettyLog)

	// Blob storage. FIREBASE_STORAGE_BUCKET is honoured for existing deployments.
	cfg.BlobBackend = strings.ToLower(getenv("CURATOR_BLOB_BACKEND", cfg.BlobBackend))
	cfg.Bucket = getenv("CURATOR_BUCKET", getenv("FIREBASE_STORAGE_BUCKET", cfg.Bucket))
	cfg.BlobDir = getenv("CURATOR_BLOB_DIR", cfg.BlobDir)
	cfg.MaxImageSize = getenv("CURATOR_MAX_IMAGE_SIZE", cfg.MaxImageSize)

	// Redis settings
	cfg.RedisAddr = getenv("CURATOR_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisUser = getenv("CURATOR_REDIS_USERNAME", cfg.RedisUser)
	cfg.RedisPassword = getenv("CURATOR_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getenvInt("CURATOR_REDIS_DB", cfg.RedisDB)
	cfg.RedisDT = mustDuration("REDIS_DIAL_TIMEOUT", cfg.RedisDT)
	cfg.RedisRT = mustDuration("REDIS_READ_TIMEOUT", cfg.RedisRT)
	cfg.RedisWT = mustDuration("REDIS_WRITE_TIMEOUT", cfg.RedisWT)
	cfg.RedisMaxWait = mustDuration("REDIS_MAX_WAIT", cfg.RedisMaxWait)
	cfg.RedisPingTimeout = mustDuration("REDIS_PING_TIMEOUT", cfg.RedisPingTimeout)
	cfg.RedisPoolSize = getenvInt("REDIS_POOL_SIZE", cfg.RedisPoolSize)
	cfg.RedisConnectTimeout = mustDuration("REDIS_CONNECT_TIMEOUT", cfg.RedisConnectTimeout)
	cfg.RedisRetryInterval = mustDuration("REDIS_RETRY_INTERVAL", cfg.RedisRetryInterval)
	cfg.RedisWarnThreshold = getenvInt("REDIS_WARN_THRESHOLD", cfg.RedisWarnThreshold)

	// Access restrictions
	if v := os.Getenv("CURATOR_ALLOWED_CIDRS"); v != "" {
		cfg.AllowedCIDRS = splitAndTrim(v)
	}
	cfg.TrustProxy = mustBool("CURATOR_TRUST_PROXY", cfg.TrustProxy)
}

func (c *Config) validate() error {
	switch c.BlobBackend {
	case BlobBackendGCS, BlobBackendDirectory, BlobBackendMemory:
	default:
		return fmt.Errorf("unsupported blob backend: %q", c.BlobBackend)
	}

	size, err := units.RAMInBytes(c.MaxImageSize)
	if err != nil {
		return fmt.Errorf("invalid max image size %q: %w", c.MaxImageSize, err)
	}
	if size <= 0 {
		return fmt.Errorf("max image size must be positive, got %q", c.MaxImageSize)
	}
	c.maxImageBytes = size

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be > 0, got %v", c.RequestTimeout)
	}

	return nil
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
