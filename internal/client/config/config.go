package config

import (
	"time"
)

// Breaker tunes the circuit breaker in front of the remote store.
type Breaker struct {
	FailureThreshold float64
	MinRequests      uint32
	OpenTimeout      time.Duration
}

// Config holds runtime settings for the Recipe Lab CLI.
type Config struct {
	ServerAddr     string
	DatabasePath   string
	RequestTimeout time.Duration
	LogLevel       string
	Breaker        Breaker
}

// LoadDefaults populates c with defaults suitable for local development.
func (c *Config) LoadDefaults() {
	c.ServerAddr = "127.0.0.1:50051"
	c.DatabasePath = "recipelab.db"
	c.RequestTimeout = 10 * time.Second
	c.LogLevel = "info"
	c.Breaker = Breaker{FailureThreshold: 0.6, MinRequests: 3, OpenTimeout: 15 * time.Second}
}

// Offline reports whether no remote store is configured.
func (c *Config) Offline() bool {
	return c.ServerAddr == ""
}

// LoadConfig builds a Config from defaults, the optional config file and the
// flags found in args (typically os.Args[1:]).
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
