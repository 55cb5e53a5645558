package indexbuild

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb/maptile"
)

// TileZoomRange bounds the zoom levels tippecanoe is allowed to choose
// tiles at.
type TileZoomRange struct {
	Min int
	Max int
}

// GenerateTiles invokes tippecanoe over a GeoJSON FeatureCollection to
// produce the .pbf vector tile pyramid that doubles as the engine's
// scale-index sections (see tilestore/mvtindex.go).
func GenerateTiles(ctx context.Context, geoJSONPath, sourceID, outputBaseDir string, zoom TileZoomRange) (string, error) {
	if zoom.Min <= 0 {
		zoom.Min = 5
	}
	if zoom.Max <= 0 {
		zoom.Max = 16
	}

	logger := slog.With("source", sourceID, "geojson", geoJSONPath, "min_zoom", zoom.Min, "max_zoom", zoom.Max)
	logger.Info("generating tiles with tippecanoe")

	tilesDir := filepath.Join(outputBaseDir, sourceID)
	if err := os.RemoveAll(tilesDir); err != nil {
		return "", fmt.Errorf("failed to clean tiles directory: %w", err)
	}
	if err := os.MkdirAll(tilesDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create tiles directory: %w", err)
	}

	cmd := exec.CommandContext(ctx, "tippecanoe",
		"--force",
		fmt.Sprintf("--output-to-directory=%s", tilesDir),
		"--read-parallel",
		"--temporary-directory=/tmp",
		fmt.Sprintf("--minimum-zoom=%d", zoom.Min),
		fmt.Sprintf("--maximum-zoom=%d", zoom.Max),
		"--drop-fraction-as-needed",
		"--extend-zooms-if-still-dropping",
		"--layer=roads",
		fmt.Sprintf("--name=%s index", sourceID),
		"--preserve-input-order",
		"--maximum-string-attribute-length=1000",
		"--no-tile-compression",
		"--include", "id",
		"--include", "Name",
		"--include", "curvature",
		"--include", "length",
		geoJSONPath,
	)

	logger.Debug("running tippecanoe", "cmd", cmd.String())
	output, err := cmd.CombinedOutput()
	if err != nil {
		logger.Error("tippecanoe failed", "error", err, "output", string(output))
		return "", fmt.Errorf("tippecanoe generation failed: %w", err)
	}
	logger.Debug("tippecanoe output", "output", string(output))

	return tilesDir, nil
}

// WalkTiles visits every generated z/x/y.pbf file under tilesDir and
// its corresponding maptile.Tile.
func WalkTiles(tilesDir string, visit func(tile maptile.Tile, pbfPath string) error) error {
	return filepath.Walk(tilesDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".pbf" {
			return nil
		}

		rel, err := filepath.Rel(tilesDir, path)
		if err != nil {
			return nil
		}
		parts := strings.Split(rel, string(filepath.Separator))
		if len(parts) != 3 {
			return nil
		}

		z, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil
		}
		x, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil
		}
		y, err := strconv.Atoi(strings.TrimSuffix(parts[2], ".pbf"))
		if err != nil {
			return nil
		}

		return visit(maptile.New(uint32(x), uint32(y), maptile.Zoom(z)), path)
	})
}
