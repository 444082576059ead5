// Package service contains the application use cases: submitting jobs,
// resolving their status from the broker and the result store, and probing
// the health of the dependencies. Services depend on small interfaces rather
// than on the Redis or PostgreSQL implementations.
package service
