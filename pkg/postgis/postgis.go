package postgis

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kass/go-geo-locale/pkg/models"
	"github.com/lib/pq"
	"github.com/paulmach/orb"
)

// LocaleStore reads and writes locale collections in a PostGIS table
type LocaleStore struct {
	db *sql.DB
}

// ConnString builds a lib/pq connection string
func ConnString(host, user, password, dbname string, port int) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
}

// NewLocaleStore opens a PostGIS connection
func NewLocaleStore(ctx context.Context, dsn string) (*LocaleStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &LocaleStore{db: db}, nil
}

// InitSchema creates the locales table and its spatial index
func (p *LocaleStore) InitSchema(ctx context.Context) error {
	queries := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis;`,

		`CREATE TABLE IF NOT EXISTS locales (
			position INTEGER NOT NULL,
			slug TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			parent TEXT NOT NULL DEFAULT '',
			children TEXT[],
			published BOOLEAN NOT NULL DEFAULT FALSE,
			bounds GEOMETRY(POLYGON, 4326),
			featured_neighborhoods JSONB NOT NULL DEFAULT '[]'
		);`,

		`CREATE INDEX IF NOT EXISTS idx_locales_bounds ON locales USING GIST(bounds);`,
	}

	for _, query := range queries {
		if _, err := p.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}

	return nil
}

// UpsertLocales writes locales in one transaction, keeping their order
func (p *LocaleStore) UpsertLocales(ctx context.Context, locales []*models.Locale) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO locales (position, slug, name, parent, children, published, bounds, featured_neighborhoods)
		VALUES ($1, $2, $3, $4, $5, $6, ST_SetSRID(ST_GeomFromGeoJSON($7::text), 4326), $8)
		ON CONFLICT (slug) DO UPDATE SET
			position = EXCLUDED.position,
			name = EXCLUDED.name,
			parent = EXCLUDED.parent,
			children = EXCLUDED.children,
			published = EXCLUDED.published,
			bounds = EXCLUDED.bounds,
			featured_neighborhoods = EXCLUDED.featured_neighborhoods
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, l := range locales {
		if l == nil || l.Slug == "" {
			continue
		}

		bounds, err := boundsGeoJSON(l.Bounds)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("locale %s: %w", l.Slug, err)
		}

		neighborhoods, err := json.Marshal(nonNilNeighborhoods(l.FeaturedNeighborhoods))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("locale %s: failed to encode neighborhoods: %w", l.Slug, err)
		}

		var children interface{}
		if l.Children != nil {
			children = pq.Array(l.Children)
		}

		if _, err := stmt.ExecContext(ctx, i, l.Slug, l.Name, l.Parent, children, l.Published, bounds, neighborhoods); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to upsert locale %s: %w", l.Slug, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit locales: %w", err)
	}

	return nil
}

// LoadLocales reads the whole collection in stored order
func (p *LocaleStore) LoadLocales(ctx context.Context) ([]*models.Locale, error) {
	query := `
		SELECT slug, name, parent, children, published, ST_AsGeoJSON(bounds), featured_neighborhoods
		FROM locales
		ORDER BY position, slug
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var results []*models.Locale
	for rows.Next() {
		var (
			l             models.Locale
			children      pq.StringArray
			bounds        sql.NullString
			neighborhoods []byte
		)

		if err := rows.Scan(&l.Slug, &l.Name, &l.Parent, &children, &l.Published, &bounds, &neighborhoods); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if children != nil {
			l.Children = []string(children)
		}
		if bounds.Valid {
			var b models.Bounds
			if err := json.Unmarshal([]byte(bounds.String), &b); err != nil {
				return nil, fmt.Errorf("locale %s: failed to decode bounds: %w", l.Slug, err)
			}
			l.Bounds = &b
		}
		if err := json.Unmarshal(neighborhoods, &l.FeaturedNeighborhoods); err != nil {
			return nil, fmt.Errorf("locale %s: failed to decode neighborhoods: %w", l.Slug, err)
		}
		if len(l.FeaturedNeighborhoods) == 0 {
			l.FeaturedNeighborhoods = nil
		}

		results = append(results, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return results, nil
}

// Count returns the number of stored locales
func (p *LocaleStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM locales").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count locales: %w", err)
	}
	return count, nil
}

// FindContaining returns the slugs of published locales whose bounds contain
// the point, in stored order. Points on a boundary count as inside here,
// unlike the in-memory ray cast.
func (p *LocaleStore) FindContaining(ctx context.Context, lat, lng float64) ([]string, error) {
	query := `
		SELECT slug
		FROM locales
		WHERE published
			AND bounds && ST_SetSRID(ST_MakePoint($1, $2), 4326)
			AND ST_Intersects(bounds, ST_SetSRID(ST_MakePoint($1, $2), 4326))
		ORDER BY position, slug
	`

	rows, err := p.db.QueryContext(ctx, query, lng, lat)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		slugs = append(slugs, slug)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return slugs, nil
}

// Stats returns table and index sizes for the locales table
func (p *LocaleStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var tableSize, indexSize string
	err := p.db.QueryRowContext(ctx, `
		SELECT
			pg_size_pretty(pg_total_relation_size('locales')) as total_size,
			pg_size_pretty(pg_indexes_size('locales')) as index_size
	`).Scan(&tableSize, &indexSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get table size: %w", err)
	}
	stats["table_size"] = tableSize
	stats["index_size"] = indexSize

	count, err := p.Count(ctx)
	if err != nil {
		return nil, err
	}
	stats["row_count"] = count

	return stats, nil
}

// Close closes the database connection
func (p *LocaleStore) Close() error {
	return p.db.Close()
}

// boundsGeoJSON renders the bounds as a GeoJSON polygon with closed rings,
// or nil for none. PostGIS rejects open rings.
func boundsGeoJSON(b *models.Bounds) (interface{}, error) {
	if b == nil || len(b.Coordinates) == 0 || len(b.Coordinates[0]) == 0 {
		return nil, nil
	}

	rings := make(orb.Polygon, 0, len(b.Coordinates))
	for _, ring := range b.Coordinates {
		if len(ring) == 0 {
			continue
		}
		closed := append(orb.Ring(nil), ring...)
		if !closed.Closed() {
			closed = append(closed, closed[0])
		}
		rings = append(rings, closed)
	}

	data, err := json.Marshal(models.Bounds{Type: "Polygon", Coordinates: rings})
	if err != nil {
		return nil, fmt.Errorf("failed to encode bounds: %w", err)
	}
	return string(data), nil
}

func nonNilNeighborhoods(n []models.Neighborhood) []models.Neighborhood {
	if n == nil {
		return []models.Neighborhood{}
	}
	return n
}
