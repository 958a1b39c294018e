package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultFile is read when no config file is given and it exists.
const DefaultFile = "tooldeck.toml"

// Store kinds.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config holds all configuration settings for tooldeck.
type Config struct {
	// APIBase is the base URL of the computation backend.
	APIBase string `toml:"api_base"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	// RequestTimeout bounds every backend request.
	RequestTimeout time.Duration `toml:"request_timeout"`

	Server ServerConfig `toml:"server"`
	Store  StoreConfig  `toml:"store"`
	Redis  RedisConfig  `toml:"redis"`
	MCP    MCPConfig    `toml:"mcp"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`

	// SessionSecret signs the browser cookie. Empty means a random key per
	// process, which logs every browser out on restart.
	SessionSecret string `toml:"session_secret"`

	Metrics bool `toml:"metrics"`
}

// StoreConfig selects where visits live.
type StoreConfig struct {
	Kind string `toml:"kind"`

	// SessionTTL expires idle visits. Zero keeps them forever.
	SessionTTL time.Duration `toml:"session_ttl"`

	// EncryptionKey is a base64 AES-256 key. When set, visits are stored
	// encrypted. PreviousKeys still decrypt visits written before a rotation.
	EncryptionKey string   `toml:"encryption_key"`
	PreviousKeys  []string `toml:"previous_keys"`

	// MaskFields are regular expressions; form fields whose name matches
	// are stored as a mask.
	MaskFields []string `toml:"mask_fields"`
}

// RedisConfig holds the redis connection settings.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

// MCPConfig configures the agent surface started next to the HTTP server.
type MCPConfig struct {
	// SSEAddr enables the MCP SSE transport on this address when set.
	SSEAddr string `toml:"sse_addr"`
	BaseURL string `toml:"base_url"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		APIBase:        "http://localhost:8000",
		LogLevel:       "info",
		LogFormat:      "text",
		RequestTimeout: 30 * time.Second,
		Server: ServerConfig{
			ListenAddr: ":8080",
			Metrics:    true,
		},
		Store: StoreConfig{
			Kind:       StoreMemory,
			SessionTTL: 24 * time.Hour,
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "tooldeck:visit:",
		},
	}
}

// Load builds the configuration from defaults, the TOML file, a .env file
// and TOOLDECK_* environment variables, later sources winning.
// An explicit path must exist; DefaultFile is optional.
func Load(path string) (*Config, error) {
	cfg := Default()

	file := path
	if file == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			file = DefaultFile
		}
	}
	if file != "" {
		if _, err := toml.DecodeFile(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", file, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	c.APIBase = firstNonEmpty(os.Getenv("TOOLDECK_API_BASE"), os.Getenv("API_BASE"), c.APIBase)
	c.LogLevel = firstNonEmpty(os.Getenv("TOOLDECK_LOG_LEVEL"), c.LogLevel)
	c.LogFormat = firstNonEmpty(os.Getenv("TOOLDECK_LOG_FORMAT"), c.LogFormat)
	c.Server.ListenAddr = firstNonEmpty(os.Getenv("TOOLDECK_LISTEN_ADDR"), c.Server.ListenAddr)
	c.Server.SessionSecret = firstNonEmpty(os.Getenv("TOOLDECK_SESSION_SECRET"), c.Server.SessionSecret)
	c.Store.Kind = firstNonEmpty(os.Getenv("TOOLDECK_STORE"), c.Store.Kind)
	c.Redis.Addr = firstNonEmpty(os.Getenv("TOOLDECK_REDIS_ADDR"), c.Redis.Addr)
	c.Redis.Password = firstNonEmpty(os.Getenv("TOOLDECK_REDIS_PASSWORD"), c.Redis.Password)
	c.MCP.SSEAddr = firstNonEmpty(os.Getenv("TOOLDECK_MCP_ADDR"), c.MCP.SSEAddr)
	c.Store.EncryptionKey = firstNonEmpty(os.Getenv("TOOLDECK_STORE_KEY"), c.Store.EncryptionKey)

	if v := strings.TrimSpace(os.Getenv("TOOLDECK_MASK_FIELDS")); v != "" {
		c.Store.MaskFields = strings.Split(v, ",")
	}

	if v := strings.TrimSpace(os.Getenv("TOOLDECK_REDIS_DB")); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TOOLDECK_REDIS_DB: %w", err)
		}
		c.Redis.DB = db
	}
	if v := strings.TrimSpace(os.Getenv("TOOLDECK_METRICS")); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TOOLDECK_METRICS: %w", err)
		}
		c.Server.Metrics = on
	}
	for env, dst := range map[string]*time.Duration{
		"TOOLDECK_SESSION_TTL":     &c.Store.SessionTTL,
		"TOOLDECK_REQUEST_TIMEOUT": &c.RequestTimeout,
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", env, err)
			}
			*dst = d
		}
	}
	return nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBase)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_base must be an absolute http(s) URL, got %q", c.APIBase)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.Store.Kind != StoreMemory && c.Store.Kind != StoreRedis {
		return fmt.Errorf("store.kind must be %s or %s, got %q", StoreMemory, StoreRedis, c.Store.Kind)
	}
	if c.Server.SessionSecret != "" && len(c.Server.SessionSecret) < 32 {
		return fmt.Errorf("server.session_secret must be at least 32 bytes, got %d", len(c.Server.SessionSecret))
	}
	if _, _, err := c.Store.Keys(); err != nil {
		return err
	}
	return nil
}

// Keys decodes the store encryption keys. A nil active key means
// encryption is off.
func (s StoreConfig) Keys() (active []byte, previous [][]byte, err error) {
	if s.EncryptionKey == "" {
		if len(s.PreviousKeys) > 0 {
			return nil, nil, errors.New("store.previous_keys needs store.encryption_key")
		}
		return nil, nil, nil
	}
	if active, err = decodeKey("store.encryption_key", s.EncryptionKey); err != nil {
		return nil, nil, err
	}
	for i, k := range s.PreviousKeys {
		key, err := decodeKey(fmt.Sprintf("store.previous_keys[%d]", i), k)
		if err != nil {
			return nil, nil, err
		}
		previous = append(previous, key)
	}
	return active, previous, nil
}

func decodeKey(name, value string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s must decode to 32 bytes, got %d", name, len(key))
	}
	return key, nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// String returns a representation safe to log: secrets are masked.
func (c *Config) String() string {
	parts := []string{
		fmt.Sprintf("APIBase: %s", c.APIBase),
		fmt.Sprintf("ListenAddr: %s", c.Server.ListenAddr),
		fmt.Sprintf("Store: %s", c.Store.Kind),
		fmt.Sprintf("SessionSecret: %s", mask(c.Server.SessionSecret)),
		fmt.Sprintf("StoreKey: %s", mask(c.Store.EncryptionKey)),
	}
	if c.Store.Kind == StoreRedis {
		parts = append(parts,
			fmt.Sprintf("RedisAddr: %s", c.Redis.Addr),
			fmt.Sprintf("RedisPassword: %s", mask(c.Redis.Password)),
		)
	}
	if c.MCP.SSEAddr != "" {
		parts = append(parts, fmt.Sprintf("MCPAddr: %s", c.MCP.SSEAddr))
	}
	return strings.Join(parts, ", ")
}

func mask(s string) string {
	if s == "" {
		return "(unset)"
	}
	return "****"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
