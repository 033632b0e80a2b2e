package config

import (
	"github.com/dmitrijs2005/recipelab/internal/flagx"
	"github.com/dmitrijs2005/recipelab/internal/timex"
)

// fileConfig is the on-disk shape of Config. Durations accept "1m" or
// integer nanoseconds. Absent keys keep their current values.
type fileConfig struct {
	EndpointAddrGRPC             *string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	MetricsAddr                  *string         `json:"metrics_addr" yaml:"metrics_addr"`
	DatabaseDSN                  *string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                    *string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	S3RootUser                   *string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword               *string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                     *string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                     *string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint               *string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	LogMode                      *string         `json:"log_mode" yaml:"log_mode"`
	MigrationBatchSize           *int            `json:"migration_batch_size" yaml:"migration_batch_size"`
	ProfilePolicy                *string         `json:"profile_policy" yaml:"profile_policy"`
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
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

	setString(&cfg.EndpointAddrGRPC, fc.EndpointAddrGRPC)
	setString(&cfg.MetricsAddr, fc.MetricsAddr)
	setString(&cfg.DatabaseDSN, fc.DatabaseDSN)
	setString(&cfg.SecretKey, fc.SecretKey)
	setString(&cfg.S3RootUser, fc.S3RootUser)
	setString(&cfg.S3RootPassword, fc.S3RootPassword)
	setString(&cfg.S3Bucket, fc.S3Bucket)
	setString(&cfg.S3Region, fc.S3Region)
	setString(&cfg.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&cfg.LogMode, fc.LogMode)

	if fc.AccessTokenValidityDuration != nil {
		cfg.AccessTokenValidityDuration = fc.AccessTokenValidityDuration.Duration
	}
	if fc.RefreshTokenValidityDuration != nil {
		cfg.RefreshTokenValidityDuration = fc.RefreshTokenValidityDuration.Duration
	}
	if fc.MigrationBatchSize != nil {
		cfg.MigrationBatchSize = *fc.MigrationBatchSize
	}
	if fc.ProfilePolicy != nil {
		cfg.ProfilePolicy = ProfilePolicy(*fc.ProfilePolicy)
	}
	return nil
}
