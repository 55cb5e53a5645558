package indexbuild

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/paulmach/orb/maptile"

	"github.com/mumuon/drivefinder/geofts/tilestore"
)

// Uploader is the subset of *main.S3Client a Pipeline needs to publish
// generated sections. Declared here, mirroring tilestore.Downloader, so
// indexbuild has no compile-time dependency on the AWS SDK.
type Uploader interface {
	UploadFile(ctx context.Context, filePath, s3Key string) (int64, error)
}

// Registry is the subset of *registrydb.Store a Pipeline writes
// through once a tile's sections are on disk (and, where Uploader is
// set, published remotely).
type Registry interface {
	UpsertTile(ctx context.Context, r tilestore.Row) error
}

// Pipeline ingests a source's KMZ archive end to end: extract, parse,
// tile, index, publish, register.
type Pipeline struct {
	DataDir       string
	TilesBaseDir  string
	Zoom          TileZoomRange
	Registry      Registry
	Uploader      Uploader // nil to keep sections local-only
	RemoteKeyRoot string   // object-store prefix, used only if Uploader is set
}

// Ingest runs the full pipeline for one source id and returns the
// number of tiles it registered.
func (p *Pipeline) Ingest(ctx context.Context, sourceID string) (int, error) {
	logger := slog.With("source", sourceID)

	kmlPath, err := ExtractKMZ(ctx, sourceID, p.DataDir)
	if err != nil {
		return 0, fmt.Errorf("extract: %w", err)
	}
	defer CleanupExtraction(kmlPath)

	placemarks, err := ParseKML(ctx, kmlPath, sourceID)
	if err != nil {
		return 0, fmt.Errorf("parse: %w", err)
	}
	if len(placemarks) == 0 {
		logger.Warn("no placemarks parsed, skipping tile generation")
		return 0, nil
	}

	geoJSONPath, err := WriteGeoJSON(placemarks, sourceID)
	if err != nil {
		return 0, fmt.Errorf("geojson: %w", err)
	}
	defer os.Remove(geoJSONPath)

	tilesDir, err := GenerateTiles(ctx, geoJSONPath, sourceID, p.TilesBaseDir, p.Zoom)
	if err != nil {
		return 0, fmt.Errorf("tiles: %w", err)
	}

	registered := 0
	err = WalkTiles(tilesDir, func(tile maptile.Tile, pbfPath string) error {
		row, err := p.publishTile(ctx, sourceID, placemarks, tile, pbfPath)
		if err != nil {
			return err
		}
		if err := p.Registry.UpsertTile(ctx, row); err != nil {
			return fmt.Errorf("registering tile %s: %w", row.ID, err)
		}
		registered++
		return nil
	})
	if err != nil {
		return registered, fmt.Errorf("publish: %w", err)
	}

	logger.Info("ingest complete", "placemarks", len(placemarks), "tiles", registered)
	return registered, nil
}

func (p *Pipeline) publishTile(ctx context.Context, sourceID string, placemarks []Placemark, tile maptile.Tile, pbfPath string) (tilestore.Row, error) {
	id := fmt.Sprintf("%s/%d/%d/%d", sourceID, tile.Z, tile.X, tile.Y)

	trieBytes := EncodeTileTrie(placemarks, tile)
	triePath := pbfPath[:len(pbfPath)-len(filepath.Ext(pbfPath))] + ".trie"
	if err := os.WriteFile(triePath, trieBytes, 0644); err != nil {
		return tilestore.Row{}, fmt.Errorf("writing trie snapshot: %w", err)
	}

	pbfKey := id + ".pbf"
	trieKey := id + ".trie"
	if p.Uploader != nil {
		pbfKey = p.RemoteKeyRoot + "/" + pbfKey
		trieKey = p.RemoteKeyRoot + "/" + trieKey
		if _, err := p.Uploader.UploadFile(ctx, pbfPath, pbfKey); err != nil {
			return tilestore.Row{}, fmt.Errorf("uploading pbf: %w", err)
		}
		if _, err := p.Uploader.UploadFile(ctx, triePath, trieKey); err != nil {
			return tilestore.Row{}, fmt.Errorf("uploading trie: %w", err)
		}
	}

	return tilestore.Row{
		ID:       id,
		Tile:     tile,
		Bounds:   tilestore.RectangleFromBound(tile.Bound()),
		MinScale: float64(p.Zoom.Min),
		MaxScale: float64(p.Zoom.Max),
		TrieKey:  trieKey,
		PBFKey:   pbfKey,
	}, nil
}
