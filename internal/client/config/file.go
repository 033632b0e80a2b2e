package config

import (
	"github.com/dmitrijs2005/recipelab/internal/flagx"
	"github.com/dmitrijs2005/recipelab/internal/timex"
)

// fileConfig mirrors Config for file decoding. Pointer fields tell an absent
// key from a zero value, so a partial file only overrides what it names.
type fileConfig struct {
	ServerAddr     *string         `json:"server_addr" yaml:"server_addr"`
	DatabasePath   *string         `json:"database_path" yaml:"database_path"`
	RequestTimeout *timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	LogLevel       *string         `json:"log_level" yaml:"log_level"`
	Breaker        *struct {
		FailureThreshold *float64        `json:"failure_threshold" yaml:"failure_threshold"`
		MinRequests      *uint32         `json:"min_requests" yaml:"min_requests"`
		OpenTimeout      *timex.Duration `json:"open_timeout" yaml:"open_timeout"`
	} `json:"breaker" yaml:"breaker"`
}

func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	var fc fileConfig
	if err := flagx.DecodeConfigFile(path, &fc); err != nil {
		return err
	}

	if fc.ServerAddr != nil {
		cfg.ServerAddr = *fc.ServerAddr
	}
	if fc.DatabasePath != nil {
		cfg.DatabasePath = *fc.DatabasePath
	}
	if fc.RequestTimeout != nil {
		cfg.RequestTimeout = fc.RequestTimeout.Duration
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if b := fc.Breaker; b != nil {
		if b.FailureThreshold != nil {
			cfg.Breaker.FailureThreshold = *b.FailureThreshold
		}
		if b.MinRequests != nil {
			cfg.Breaker.MinRequests = *b.MinRequests
		}
		if b.OpenTimeout != nil {
			cfg.Breaker.OpenTimeout = b.OpenTimeout.Duration
		}
	}
	return nil
}
