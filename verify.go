package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mumuon/drivefinder/geofts/tilestore"
)

// RowLister is the subset of *registrydb.Store VerifyRegistry needs.
// Declared here so the check can run against a fake in tests without a
// live Postgres connection.
type RowLister interface {
	Rows(ctx context.Context) ([]tilestore.Row, error)
}

// TileReport is the result of checking one registry row.
type TileReport struct {
	ID     string
	OK     bool
	Issues []string
}

// RegistryIntegrityReport is the result of verifying every row in the
// registry against the sections it claims to have.
type RegistryIntegrityReport struct {
	Checked int
	Failed  int
	Tiles   []TileReport
}

// Print logs the report, mirroring the teacher's pass/fail summary
// followed by a per-item breakdown of anything that failed.
func (r *RegistryIntegrityReport) Print() {
	logger := slog.With("checked", r.Checked, "failed", r.Failed)
	if r.Failed == 0 {
		logger.Info("registry integrity check PASSED")
		return
	}
	logger.Error("registry integrity check FAILED")
	for _, t := range r.Tiles {
		if !t.OK {
			slog.Error("tile failed integrity check", "id", t.ID, "issues", t.Issues)
		}
	}
}

// VerifyRegistry walks every tile row the registry knows about and
// checks: the row's declared scale range brackets its own zoom, and
// every section key it declares actually opens. It never checks
// feature contents — only that the sections a retrieval would reach
// for are present and well-formed.
func VerifyRegistry(ctx context.Context, store RowLister, fetcher tilestore.Fetcher) (*RegistryIntegrityReport, error) {
	rows, err := store.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tile rows: %w", err)
	}

	report := &RegistryIntegrityReport{}
	for _, row := range rows {
		report.Checked++
		tr := TileReport{ID: row.ID, OK: true}

		zoom := float64(row.Tile.Z)
		if zoom < row.MinScale || zoom > row.MaxScale {
			tr.OK = false
			tr.Issues = append(tr.Issues, fmt.Sprintf("tile zoom %d outside declared scale range [%v,%v]", row.Tile.Z, row.MinScale, row.MaxScale))
		}

		handle := tilestore.NewHandle(row, fetcher)

		if handle.HasTextSection() {
			if _, _, err := handle.OpenTextIndex(); err != nil {
				tr.OK = false
				tr.Issues = append(tr.Issues, fmt.Sprintf("trie section unreadable: %v", err))
			}
		}
		if handle.HasSpatialSection() {
			if _, err := handle.OpenSpatialIndex(); err != nil {
				tr.OK = false
				tr.Issues = append(tr.Issues, fmt.Sprintf("spatial section unreadable: %v", err))
			}
		}
		if row.Deleted {
			tr.Issues = append(tr.Issues, "tile is soft-deleted")
		}

		if !tr.OK {
			report.Failed++
		}
		report.Tiles = append(report.Tiles, tr)
	}

	return report, nil
}
