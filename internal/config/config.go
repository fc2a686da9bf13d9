// Package config loads the demo node's configuration: environment-variable
// defaults layered with an optional YAML file, the way the teacher's
// internal/config package defaults from the environment and pkg/config
// tags its structs for YAML.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dualtree-sched/dualtreequeue/pkg/cache"
)

// Config holds the application configuration for the dual-tree queue demo
// node (cmd/dualtreed).
type Config struct {
	Queue  QueueConfig  `yaml:"queue"`
	Cache  cache.Config `yaml:"cache"`
	API    APIConfig    `yaml:"api"`
	P2P    P2PConfig    `yaml:"p2p"`
	DBURL  string       `yaml:"db_url" env:"DUALTREE_DB_URL"`
}

// QueueConfig controls the core scheduler (spec.md §4.5's Init parameter).
type QueueConfig struct {
	MaxQuerySubtreeSize int `yaml:"max_query_subtree_size" env:"DUALTREE_MAX_QUERY_SUBTREE_SIZE"`
}

// APIConfig configures the debug/metrics HTTP surface (pkg/apiserver).
type APIConfig struct {
	Listen           string        `yaml:"listen" env:"DUALTREE_API_LISTEN"`
	JWTSecret        string        `yaml:"jwt_secret" env:"DUALTREE_JWT_SECRET"`
	OperatorPassword string        `yaml:"operator_password" env:"DUALTREE_OPERATOR_PASSWORD"`
	TokenExpiry      time.Duration `yaml:"token_expiry" env:"DUALTREE_TOKEN_EXPIRY"`
	MetricsInterval  time.Duration `yaml:"metrics_interval" env:"DUALTREE_METRICS_INTERVAL"`
	CorsOrigins      []string      `yaml:"cors_origins"`
}

// P2PConfig configures the exchange layer's libp2p host.
type P2PConfig struct {
	ListenAddr     string        `yaml:"listen_addr" env:"DUALTREE_P2P_LISTEN_ADDR"`
	BootstrapPeers []string      `yaml:"bootstrap_peers"`
	Topic          string        `yaml:"topic" env:"DUALTREE_P2P_TOPIC"`
	RateLimit      float64       `yaml:"rate_limit" env:"DUALTREE_P2P_RATE_LIMIT"`
	RateBurst      int           `yaml:"rate_burst" env:"DUALTREE_P2P_RATE_BURST"`
	DialTimeout    time.Duration `yaml:"dial_timeout" env:"DUALTREE_P2P_DIAL_TIMEOUT"`
}

// Default returns a configuration with sane defaults, overridable by
// environment variables.
func Default() *Config {
	return &Config{
		Queue: QueueConfig{
			MaxQuerySubtreeSize: getEnvIntOrDefault("DUALTREE_MAX_QUERY_SUBTREE_SIZE", 512),
		},
		Cache: cache.Config{
			Host: getEnvOrDefault("DUALTREE_CACHE_HOST", "127.0.0.1"),
			Port: getEnvIntOrDefault("DUALTREE_CACHE_PORT", 6379),
		},
		API: APIConfig{
			Listen:           getEnvOrDefault("DUALTREE_API_LISTEN", "0.0.0.0:8761"),
			JWTSecret:        getEnvOrDefault("DUALTREE_JWT_SECRET", "change-this-secret"),
			OperatorPassword: getEnvOrDefault("DUALTREE_OPERATOR_PASSWORD", "change-this-password"),
			TokenExpiry:      24 * time.Hour,
			MetricsInterval:  30 * time.Second,
			CorsOrigins:      []string{"*"},
		},
		P2P: P2PConfig{
			ListenAddr:  getEnvOrDefault("DUALTREE_P2P_LISTEN_ADDR", "/ip4/0.0.0.0/tcp/0"),
			Topic:       getEnvOrDefault("DUALTREE_P2P_TOPIC", "dualtree/reference-subtrees/1.0.0"),
			RateLimit:   20,
			RateBurst:   40,
			DialTimeout: 30 * time.Second,
		},
	}
}

// Load reads Default() and, if path is non-empty, overlays a YAML file on
// top of it.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}
