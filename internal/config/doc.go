// Package config handles configuration loading for parley-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from PARLEY_CONFIG environment variable
//  2. ./config.yaml (current directory)
//  3. ~/.config/parley/gateway.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	identity:
//	  jwt_secret: "${PARLEY_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	extract:
//	  timeout: "60s"
//	pipeline:
//	  timeout: "2m"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"   # WebSocket and HTTP API
//
// Database:
//
//	database:
//	  path: "/var/lib/parley/gateway.db"
//
// Object storage:
//
//	storage:
//	  endpoint: "localhost:9000"
//	  access_key: "${PARLEY_STORAGE_KEY}"
//	  secret_key: "${PARLEY_STORAGE_SECRET}"
//	  bucket: "artifacts"
//	  use_ssl: false
//
// Model endpoint:
//
//	ai:
//	  base_url: "http://localhost:11434/v1"
//	  api_key: "${PARLEY_AI_KEY}"
//	  model: "llama3"
//	  temperature: 0.7
//	  max_tokens: 2048
//
// Context assembly:
//
//	context:
//	  fetch_window: 100
//	  retain_fraction: 0.7
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load("/etc/parley/gateway.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
