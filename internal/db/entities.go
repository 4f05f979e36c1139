package db

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/entity-catalog/internal/types"
)

// -----------------------------------------------------------------------------
// Entity Methods
// -----------------------------------------------------------------------------

func entityQuery(entityID int64) sq.SelectBuilder {
	return psql.Select(
		"entity_id", "entity_name", "description",
		"validity_result", "validity_method", "created_at", "updated_at",
	).
		From("entities").
		Where(sq.Eq{"entity_id": entityID})
}

func entitySourcesQuery(entityID int64) sq.SelectBuilder {
	return psql.Select("s.source_id", "m.entity_id", "s.source_type", "s.source_ref", "s.created_at").
		From("entities_sources s").
		Join("entities_source_map m ON m.source_id = s.source_id").
		Where(sq.Eq{"m.entity_id": entityID}).
		OrderBy("s.source_id")
}

// CountEntities returns the number of rows in entities.
func (db *DB) CountEntities(ctx context.Context) (int64, error) {
	query, args, err := psql.Select("COUNT(*)").From("entities").ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var count int64
	if err := db.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entities: %w", err)
	}
	return count, nil
}

// GetEntity retrieves an entity by ID. Returns nil, nil when it does not exist.
func (db *DB) GetEntity(ctx context.Context, entityID int64) (*types.Entity, error) {
	query, args, err := entityQuery(entityID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build entity query: %w", err)
	}

	var e types.Entity
	err = db.pool.QueryRow(ctx, query, args...).Scan(
		&e.ID, &e.Name, &e.Description,
		&e.ValidityResult, &e.ValidityMethod, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get entity %d: %w", entityID, err)
	}
	return &e, nil
}

// ListEntitySources lists the sources mapped to an entity.
func (db *DB) ListEntitySources(ctx context.Context, entityID int64) ([]types.EntitySource, error) {
	query, args, err := entitySourcesQuery(entityID).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build sources query: %w", err)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources for entity %d: %w", entityID, err)
	}
	defer rows.Close()

	sources := make([]types.EntitySource, 0)
	for rows.Next() {
		var s types.EntitySource
		if err := rows.Scan(&s.ID, &s.EntityID, &s.SourceType, &s.SourceRef, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sources: %w", err)
	}
	return sources, nil
}
