package db

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jonathan/entity-catalog/internal/types"
)

// -----------------------------------------------------------------------------
// Catalog Methods
// -----------------------------------------------------------------------------

func domainPairsQuery() sq.SelectBuilder {
	return psql.Select("domain", "sub_domain").
		Distinct().
		From("catalog").
		OrderBy("domain", "sub_domain")
}

func catalogRecordsQuery(domain, subDomain string) sq.SelectBuilder {
	return psql.Select("entity_id", "path", "domain", "sub_domain").
		From("catalog").
		Where(sq.Eq{"domain": domain, "sub_domain": subDomain}).
		OrderBy("entity_id", "path")
}

func countByDomainQuery() sq.SelectBuilder {
	return psql.Select("domain", "COUNT(entity_id)").
		From("catalog").
		GroupBy("domain")
}

// DomainPairs lists every distinct (domain, sub_domain) pair in the catalog.
func (db *DB) DomainPairs(ctx context.Context) ([]types.DomainPair, error) {
	query, args, err := domainPairsQuery().ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build domain pairs query: %w", err)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list domain pairs: %w", err)
	}
	defer rows.Close()

	var pairs []types.DomainPair
	for rows.Next() {
		var p types.DomainPair
		if err := rows.Scan(&p.Domain, &p.SubDomain); err != nil {
			return nil, fmt.Errorf("failed to scan domain pair: %w", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate domain pairs: %w", err)
	}
	return pairs, nil
}

// CatalogRecords lists the catalog placements under one domain and sub-domain.
func (db *DB) CatalogRecords(ctx context.Context, domain, subDomain string) ([]types.PathRecord, error) {
	query, args, err := catalogRecordsQuery(domain, subDomain).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog query: %w", err)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog records for %s/%s: %w", domain, subDomain, err)
	}
	defer rows.Close()

	var records []types.PathRecord
	for rows.Next() {
		var r types.PathRecord
		if err := rows.Scan(&r.EntityID, &r.Path, &r.Domain, &r.SubDomain); err != nil {
			return nil, fmt.Errorf("failed to scan catalog record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate catalog records: %w", err)
	}
	return records, nil
}

// CountEntitiesByDomain counts catalog placements per domain.
func (db *DB) CountEntitiesByDomain(ctx context.Context) (map[string]int64, error) {
	query, args, err := countByDomainQuery().ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build count query: %w", err)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count entities by domain: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var domain string
		var count int64
		if err := rows.Scan(&domain, &count); err != nil {
			return nil, fmt.Errorf("failed to scan domain count: %w", err)
		}
		counts[domain] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate domain counts: %w", err)
	}
	return counts, nil
}
