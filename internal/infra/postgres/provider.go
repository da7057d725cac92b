package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Provider loads category definition rows from Postgres. Each row is one
// raw JSONB record keyed by slug, mirroring a data directory of JSON
// files.
type Provider struct {
	pool *pgxpool.Pool
}

func NewProvider(pool *pgxpool.Pool) *Provider {
	return &Provider{pool: pool}
}

func (p *Provider) LoadCategories(ctx context.Context) (map[string][]byte, error) {
	rows, err := p.pool.Query(ctx, `SELECT slug, data FROM categories`)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	defer rows.Close()

	records := make(map[string][]byte)
	for rows.Next() {
		var (
			slug string
			raw  []byte
		)
		if err := rows.Scan(&slug, &raw); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		records[slug] = raw
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}
	return records, nil
}
