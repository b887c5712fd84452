package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Queue    QueueConfig    `toml:"queue"`
	Stream   StreamConfig   `toml:"stream"`
	Resolver ResolverConfig `toml:"resolver"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Redis    RedisConfig    `toml:"redis"`
}

// QueueConfig contains per-session queue behavior.
type QueueConfig struct {
	MaxLength         int  `toml:"max_length"`
	CacheHorizonHours int  `toml:"cache_horizon_hours"`
	Fairness          bool `toml:"fairness"`
	AutoContinue      bool `toml:"auto_continue"`
}

// StreamConfig contains chunked stream settings.
type StreamConfig struct {
	ChunkSize int64  `toml:"chunk_size"`
	UserAgent string `toml:"user_agent"`
}

// ResolverConfig contains metadata proxy settings.
type ResolverConfig struct {
	BaseURL           string  `toml:"base_url"`
	APIKey            string  `toml:"api_key"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
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
	FlushInterval Duration `toml:"flush_interval"`
}

// RedisConfig contains the optional dirty-session publisher settings. An empty Addr disables it.
type RedisConfig struct {
	Addr    string `toml:"addr"`
	Channel string `toml:"channel"`
}

// Duration wraps [time.Duration] so it can be written as "5s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: bad duration %q", ErrInvalidConfig, text)
	}
	d.Duration = v
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Queue.MaxLength <= 0 {
		return fmt.Errorf("%w: queue.max_length must be positive", ErrInvalidConfig)
	}
	if c.Stream.ChunkSize <= 0 {
		return fmt.Errorf("%w: stream.chunk_size must be positive", ErrInvalidConfig)
	}
	if c.Queue.CacheHorizonHours < 0 {
		return fmt.Errorf("%w: queue.cache_horizon_hours must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
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
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
