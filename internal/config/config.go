package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"go-offline-cache/internal/models"
)

// Config represents the main configuration structure
type Config struct {
	Cache         CacheConfig        `yaml:"cache"`
	Site          SiteConfig         `yaml:"site"`
	Manifest      []string           `yaml:"manifest" validate:"dive,required"`
	BigCache      BigCacheConfig     `yaml:"bigcache"`
	KeyDB         KeyDBConfig        `yaml:"keydb"`
	SQLite        SQLiteConfig       `yaml:"sqlite"`
	MultiCache    MultiCacheConfig   `yaml:"multi_cache"`
	Fetch         FetchConfig        `yaml:"fetch"`
	Server        ServerConfig       `yaml:"server"`
	Update        UpdateConfig       `yaml:"update"`
	Notifications NotificationConfig `yaml:"notifications"`
	Push          PushConfig         `yaml:"push"`
}

// CacheConfig names the cache namespace. Bumping Version is the only way to
// invalidate every previously cached entry.
type CacheConfig struct {
	Name    string `yaml:"name" validate:"required"`
	Version string `yaml:"version" validate:"required"`
}

// SiteConfig describes the origin the cache serves
type SiteConfig struct {
	Origin   string `yaml:"origin" validate:"required,url"`
	Upstream string `yaml:"upstream" validate:"omitempty,url"` // where same-origin requests are fetched from
	// Cross-origin hosts the proxy may reach besides those in the manifest; globs allowed
	AllowedHosts []string `yaml:"allowed_hosts" validate:"dive,required"`
}

// BigCacheConfig configures the in-memory L1 store
type BigCacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Size         int           `yaml:"size" validate:"gte=0"` // MB
	LifeWindow   time.Duration `yaml:"life_window"`
	MaxEntrySize int           `yaml:"max_entry_size" validate:"gte=0"` // bytes
}

// KeyDBConfig configures the shared L2 store
type KeyDBConfig struct {
	Enabled    bool             `yaml:"enabled"`
	Prefix     string           `yaml:"prefix"`
	Connection ConnectionConfig `yaml:"connection"`
	Keepalive  KeepaliveConfig  `yaml:"keepalive"`
}

// ConnectionConfig holds KeyDB timeouts
type ConnectionConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	SendTimeout    time.Duration `yaml:"send_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
}

// KeepaliveConfig holds KeyDB pool settings
type KeepaliveConfig struct {
	PoolSize       int           `yaml:"pool_size" validate:"gte=0"`
	MaxIdleTimeout time.Duration `yaml:"max_idle_timeout"`
}

// SQLiteConfig configures the durable on-disk store
type SQLiteConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

// MultiCacheConfig configures the layered store
type MultiCacheConfig struct {
	EnablePropagation bool `yaml:"enable_propagation"`
}

// FetchConfig configures network fetches
type FetchConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" validate:"gte=0"`
}

// ServerConfig configures the HTTP listeners
type ServerConfig struct {
	ListenAddr   string        `yaml:"listen_addr"`
	SocketPath   string        `yaml:"socket_path"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// UpdateConfig configures periodic update checks; zero disables them
type UpdateConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// NotificationConfig holds the fixed notification metadata
type NotificationConfig struct {
	Title           string `yaml:"title"`
	Icon            string `yaml:"icon"`
	Badge           string `yaml:"badge"`
	Vibrate         []int  `yaml:"vibrate" validate:"dive,gte=0"`
	DefaultPushBody string `yaml:"default_push_body"`
	SyncTag         string `yaml:"sync_tag"`
	SyncBody        string `yaml:"sync_body"`
}

// PushConfig configures push sender authentication; an empty secret disables it
type PushConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// EnvOverrides holds settings taken from the environment
type EnvOverrides struct {
	ConfigFile   string `env:"OFFLINE_CACHE_CONFIG_FILE" envDefault:"/app/offline_cache.yaml"`
	RulesFile    string `env:"OFFLINE_CACHE_RULES_FILE" envDefault:"/app/offline_rules.yaml"`
	KeyDBURLFile string `env:"CACHE_KEYDB_URL_FILE" envDefault:"/app/.keydb-url"`
	KeyDBURL     string `env:"KEYDB_URL"`
	Version      string `env:"OFFLINE_CACHE_VERSION"`
	Origin       string `env:"OFFLINE_CACHE_ORIGIN"`
	Upstream     string `env:"OFFLINE_CACHE_UPSTREAM"`
	ListenAddr   string `env:"OFFLINE_CACHE_LISTEN_ADDR"`
	SocketPath   string `env:"OFFLINE_CACHE_SOCKET_PATH"`
	SQLitePath   string `env:"OFFLINE_CACHE_SQLITE_PATH"`
	PushSecret   string `env:"PUSH_JWT_SECRET"`
}

// LoadEnv parses environment overrides
func LoadEnv() (*EnvOverrides, error) {
	var overrides EnvOverrides
	if err := env.Parse(&overrides); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &overrides, nil
}

// LoadConfig loads configuration from file path, applies environment
// overrides (when given) and defaults, then validates the result
func LoadConfig(configPath string, overrides *EnvOverrides, logger *zap.Logger) (*Config, error) {
	logger.Info("Loading configuration", zap.String("path", configPath))

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var config Config
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to decode YAML config: %w", err)
	}

	if overrides != nil {
		config.applyEnv(overrides)
	}

	// Apply defaults
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the configuration against its validation tags
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Generation returns the cache generation described by the configuration
func (c *Config) Generation() models.Generation {
	manifest := make([]string, len(c.Manifest))
	copy(manifest, c.Manifest)
	return models.Generation{
		Name:     c.Cache.Name,
		Version:  c.Cache.Version,
		Manifest: manifest,
	}
}

// applyEnv overlays non-empty environment values
func (c *Config) applyEnv(o *EnvOverrides) {
	if o.Version != "" {
		c.Cache.Version = o.Version
	}
	if o.Origin != "" {
		c.Site.Origin = o.Origin
	}
	if o.Upstream != "" {
		c.Site.Upstream = o.Upstream
	}
	if o.ListenAddr != "" {
		c.Server.ListenAddr = o.ListenAddr
	}
	if o.SocketPath != "" {
		c.Server.SocketPath = o.SocketPath
	}
	if o.SQLitePath != "" {
		c.SQLite.Enabled = true
		c.SQLite.Path = o.SQLitePath
	}
	if o.PushSecret != "" {
		c.Push.JWTSecret = o.PushSecret
	}
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if !c.BigCache.Enabled && !c.KeyDB.Enabled && !c.SQLite.Enabled {
		c.BigCache.Enabled = true
	}
	if c.BigCache.Size == 0 {
		c.BigCache.Size = 64
	}
	if c.BigCache.LifeWindow == 0 {
		c.BigCache.LifeWindow = 365 * 24 * time.Hour
	}
	if c.BigCache.MaxEntrySize == 0 {
		c.BigCache.MaxEntrySize = 1024 * 1024
	}

	if c.KeyDB.Prefix == "" {
		c.KeyDB.Prefix = "offline-cache"
	}
	if c.KeyDB.Connection.ConnectTimeout == 0 {
		c.KeyDB.Connection.ConnectTimeout = time.Second
	}
	if c.KeyDB.Connection.SendTimeout == 0 {
		c.KeyDB.Connection.SendTimeout = time.Second
	}
	if c.KeyDB.Connection.ReadTimeout == 0 {
		c.KeyDB.Connection.ReadTimeout = time.Second
	}
	if c.KeyDB.Keepalive.PoolSize == 0 {
		c.KeyDB.Keepalive.PoolSize = 10
	}
	if c.KeyDB.Keepalive.MaxIdleTimeout == 0 {
		c.KeyDB.Keepalive.MaxIdleTimeout = 10 * time.Second
	}

	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	if c.Fetch.MaxBodyBytes == 0 {
		c.Fetch.MaxBodyBytes = 10 * 1024 * 1024
	}

	if c.Server.ListenAddr == "" && c.Server.SocketPath == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}

	if c.Notifications.Title == "" {
		c.Notifications.Title = "PP Cloud Media"
	}
	if c.Notifications.Icon == "" {
		c.Notifications.Icon = "/favicon.ico"
	}
	if c.Notifications.Badge == "" {
		c.Notifications.Badge = "/favicon.ico"
	}
	if len(c.Notifications.Vibrate) == 0 {
		c.Notifications.Vibrate = []int{100, 50, 100}
	}
	if c.Notifications.DefaultPushBody == "" {
		c.Notifications.DefaultPushBody = "New update from PP Cloud Media"
	}
	if c.Notifications.SyncTag == "" {
		c.Notifications.SyncTag = "contact-form-sync"
	}
	if c.Notifications.SyncBody == "" {
		c.Notifications.SyncBody = "Your contact form submission has been synced!"
	}
}

// GetReadTimeout returns the KeyDB read timeout
func (c *KeyDBConfig) GetReadTimeout() time.Duration {
	if c.Connection.ReadTimeout <= 0 {
		return time.Second
	}
	return c.Connection.ReadTimeout
}

// GetSendTimeout returns the KeyDB send timeout
func (c *KeyDBConfig) GetSendTimeout() time.Duration {
	if c.Connection.SendTimeout <= 0 {
		return time.Second
	}
	return c.Connection.SendTimeout
}
