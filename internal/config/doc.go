// Package config handles configuration loading, parsing, and validation
// from various sources (.env file, config file, environment variables). It
// provides type-safe access to the settings shared by the API server and the
// worker process while keeping configuration details separate from business logic.
package config
