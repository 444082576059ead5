// Package postgres provides PostgreSQL implementations of the store interfaces
// using database/sql with the pgx driver, plus the embedded goose migrations
// that create the schema.
package postgres
