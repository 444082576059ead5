// Package testdb provides helpers for tests that run against a real
// PostgreSQL instance. Tests using it are skipped unless a test database URL
// is configured, so the default test run needs no external services.
package testdb
