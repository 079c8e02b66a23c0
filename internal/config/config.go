package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Auth     AuthConfig     `yaml:"auth"`
	Mail     MailConfig     `yaml:"mail"`
	Logging  LoggingConfig  `yaml:"logging"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	Host            string        `yaml:"host"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	URL            string `yaml:"url"`
	MaxConnections int    `yaml:"max_connections"`
	MinConnections int    `yaml:"min_connections"`
}

// StorageConfig selects the task persistence backend. "postgres" uses the
// shared database, "file" keeps tasks in a local JSON snapshot.
type StorageConfig struct {
	Backend        string `yaml:"backend"`
	File           string `yaml:"file"`
	DiscardCorrupt bool   `yaml:"discard_corrupt"`
}

type AuthConfig struct {
	JWTSecret        string        `yaml:"jwt_secret"`
	AccessDuration   time.Duration `yaml:"access_duration"`
	RecoveryDuration time.Duration `yaml:"recovery_duration"`
	BcryptCost       int           `yaml:"bcrypt_cost"`
	LinkBaseURL      string        `yaml:"link_base_url"`
	LinkTTL          time.Duration `yaml:"link_ttl"`
}

type MailConfig struct {
	// "smtp" sends real mail, anything else logs the links instead.
	Mode     string `yaml:"mode"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type LoggingConfig struct {
	Development bool `yaml:"development"`
}

type WorkerConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
	SweepBatch    int           `yaml:"sweep_batch"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.yml"
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer file.Close()

	var cfg Config
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 30 * time.Second
	}
	if c.Server.RateLimitPerMin == 0 {
		c.Server.RateLimitPerMin = 100
	}
	if c.Database.MaxConnections == 0 {
		c.Database.MaxConnections = 10
	}
	if c.Database.MinConnections == 0 {
		c.Database.MinConnections = 2
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "postgres"
	}
	if c.Storage.File == "" {
		c.Storage.File = "tasks.json"
	}
	if c.Auth.AccessDuration == 0 {
		c.Auth.AccessDuration = 24 * time.Hour
	}
	if c.Auth.RecoveryDuration == 0 {
		c.Auth.RecoveryDuration = 15 * time.Minute
	}
	if c.Auth.LinkTTL == 0 {
		c.Auth.LinkTTL = 15 * time.Minute
	}
	if c.Worker.SweepInterval == 0 {
		c.Worker.SweepInterval = 10 * time.Minute
	}
	if c.Worker.SweepBatch == 0 {
		c.Worker.SweepBatch = 500
	}
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "postgres", "file":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	return nil
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
