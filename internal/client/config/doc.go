// Package config loads runtime configuration for the Recipe Lab CLI.
//
// Sources, later ones winning:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. An optional JSON or YAML file named by -c or -config.
//  3. Command-line flags.
//
// Supported flags
//
//	-a string   address:port of the remote recipe store; empty runs offline
//	-d string   path of the local database file
//	-t int      per-call remote timeout (seconds)
//	-l string   log level: debug, info, warn or error
//
// File schema (durations accept "3s" or integer nanoseconds):
//
//	server_addr: 127.0.0.1:50051
//	database_path: recipelab.db
//	request_timeout: 10s
//	log_level: info
//	breaker:
//	  failure_threshold: 0.6
//	  min_requests: 3
//	  open_timeout: 15s
package config
