// Package db provides PostgreSQL access to the entity catalog.
package db

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultSchema is the schema holding the catalog tables.
const DefaultSchema = "ks"

// psql builds statements with PostgreSQL placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool   *pgxpool.Pool
	schema string
}

// Connect establishes a connection pool whose search_path points at schema.
func Connect(ctx context.Context, databaseURL, schema string) (*DB, error) {
	if schema == "" {
		schema = DefaultSchema
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool, schema: schema}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Schema returns the schema the pool reads from.
func (db *DB) Schema() string {
	return db.schema
}

// SchemaExists reports whether the catalog schema is present and queryable.
func (db *DB) SchemaExists(ctx context.Context) (bool, error) {
	query, args, err := schemaExistsQuery(db.schema).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build schema query: %w", err)
	}

	var exists bool
	if err := db.pool.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check schema %s: %w", db.schema, err)
	}
	if !exists {
		return false, nil
	}

	if _, err := db.pool.Exec(ctx, "SELECT 1"); err != nil {
		return true, fmt.Errorf("failed to query schema %s: %w", db.schema, err)
	}
	return true, nil
}

func schemaExistsQuery(schema string) sq.SelectBuilder {
	return psql.Select().
		Column(sq.Expr("EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = ?)", schema))
}
