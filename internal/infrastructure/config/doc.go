// Package config loads and validates the gateway configuration.
//
// Configuration is layered: hardcoded defaults, then the YAML file,
// then VGATEWAY_* environment variables. Secrets (JWT signing key,
// broker credentials, InfluxDB token) should come from the environment
// rather than the file.
package config
