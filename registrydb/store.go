package registrydb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/mumuon/drivefinder/geofts/retrieval"
	"github.com/mumuon/drivefinder/geofts/tilestore"
)

// Config mirrors the teacher's DatabaseConfig; kept as its own type
// here so registrydb has no import-time dependency on package main.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Store is a Postgres-backed retrieval.TileRegistry. Unlike the
// teacher's job queue, rows here describe indexed map tiles rather
// than pipeline runs, but the connection setup and query shape — a
// pooled *sql.DB, context-scoped queries, structured logging around
// connect/ping — are carried over unchanged.
type Store struct {
	conn    *sql.DB
	fetcher tilestore.Fetcher
}

// Open connects to Postgres and verifies the connection, exactly as
// the teacher's NewDatabase does.
func Open(cfg Config, fetcher tilestore.Fetcher) (*Store, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping registry database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	slog.Info("registry database connected successfully")

	return &Store{conn: db, fetcher: fetcher}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// TileIDs implements retrieval.TileRegistry.
func (s *Store) TileIDs() []string {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows, err := s.conn.QueryContext(ctx, `SELECT id FROM "MapTile" WHERE NOT deleted`)
	if err != nil {
		slog.Error("failed to list tile ids", "error", err)
		return nil
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			slog.Error("failed to scan tile id", "error", err)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Acquire implements retrieval.TileRegistry.
func (s *Store) Acquire(id string) (retrieval.TileHandle, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	row := s.conn.QueryRowContext(ctx, `
		SELECT id, z, x, y, "minLon", "minLat", "maxLon", "maxLat",
		       "minZoom", "maxZoom", "trieKey", "pbfKey", deleted
		FROM "MapTile"
		WHERE id = $1
	`, id)

	r, err := scanRow(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("tile not found: %s", id)
		}
		return nil, fmt.Errorf("failed to query tile %s: %w", id, err)
	}
	return tilestore.NewHandle(r, s.fetcher), nil
}

// Rows returns every tile's full metadata row, bypassing the narrower
// retrieval.TileHandle view. It exists for tooling (geofts verify) that
// needs to cross-check a row's own z against its declared scale range,
// something TileHandle deliberately doesn't expose.
func (s *Store) Rows(ctx context.Context) ([]tilestore.Row, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, z, x, y, "minLon", "minLat", "maxLon", "maxLat",
		       "minZoom", "maxZoom", "trieKey", "pbfKey", deleted
		FROM "MapTile"
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tile rows: %w", err)
	}
	defer rows.Close()

	var out []tilestore.Row
	for rows.Next() {
		r, err := scanRow(rows.Scan)
		if err != nil {
			slog.Error("failed to scan tile row", "error", err)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func scanRow(scan func(dest ...any) error) (tilestore.Row, error) {
	var (
		id                        string
		z, x, y                   int
		minLon, minLat            float64
		maxLon, maxLat            float64
		minZoom, maxZoom          float64
		trieKey, pbfKey           sql.NullString
		deleted                   bool
	)
	if err := scan(&id, &z, &x, &y, &minLon, &minLat, &maxLon, &maxLat, &minZoom, &maxZoom, &trieKey, &pbfKey, &deleted); err != nil {
		return tilestore.Row{}, err
	}
	return tilestore.Row{
		ID:       id,
		Tile:     maptile.New(uint32(x), uint32(y), maptile.Zoom(z)),
		Bounds:   tilestore.RectangleFromBound(orb.Bound{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}),
		MinScale: minZoom,
		MaxScale: maxZoom,
		TrieKey:  trieKey.String,
		PBFKey:   pbfKey.String,
		Deleted:  deleted,
	}, nil
}

// UpsertTile records or updates a tile's metadata row, called by the
// index-build pipeline once a tile's sections have been written.
func (s *Store) UpsertTile(ctx context.Context, r tilestore.Row) error {
	bound := orb.Bound{Min: orb.Point{r.Bounds.MinX, r.Bounds.MinY}, Max: orb.Point{r.Bounds.MaxX, r.Bounds.MaxY}}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO "MapTile" (id, z, x, y, "minLon", "minLat", "maxLon", "maxLat", "minZoom", "maxZoom", "trieKey", "pbfKey", deleted, "updatedAt")
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, false, NOW())
		ON CONFLICT (id) DO UPDATE SET
			"minLon" = EXCLUDED."minLon", "minLat" = EXCLUDED."minLat",
			"maxLon" = EXCLUDED."maxLon", "maxLat" = EXCLUDED."maxLat",
			"minZoom" = EXCLUDED."minZoom", "maxZoom" = EXCLUDED."maxZoom",
			"trieKey" = EXCLUDED."trieKey", "pbfKey" = EXCLUDED."pbfKey",
			deleted = false, "updatedAt" = NOW()
	`, r.ID, r.Tile.Z, r.Tile.X, r.Tile.Y, bound.Min.Lon(), bound.Min.Lat(), bound.Max.Lon(), bound.Max.Lat(), r.MinScale, r.MaxScale, r.TrieKey, r.PBFKey)
	if err != nil {
		return fmt.Errorf("failed to upsert tile %s: %w", r.ID, err)
	}
	return nil
}

// MarkDeleted soft-deletes a tile row so it is no longer admitted by
// future retrievals, without losing its history.
func (s *Store) MarkDeleted(ctx context.Context, id string) error {
	_, err := s.conn.ExecContext(ctx, `UPDATE "MapTile" SET deleted = true, "updatedAt" = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark tile %s deleted: %w", id, err)
	}
	return nil
}
