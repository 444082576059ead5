// Package api handles incoming HTTP requests: job submission, status polling
// and health checks. It translates HTTP concerns to service calls and maps
// service errors to status codes without leaking internal detail.
package api
