package indexbuild

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb/maptile"
)

func createFakeTile(t *testing.T, baseDir string, z, x, y int) {
	t.Helper()
	dir := filepath.Join(baseDir, fmt.Sprintf("%d", z), fmt.Sprintf("%d", x))
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(filepath.Join(dir, fmt.Sprintf("%d.pbf", y)))
	if err != nil {
		t.Fatal(err)
	}
	f.Write([]byte("fake-tile-data"))
	f.Close()
}

func TestWalkTilesVisitsEveryTile(t *testing.T) {
	dir := t.TempDir()
	createFakeTile(t, dir, 5, 10, 20)
	createFakeTile(t, dir, 7, 30, 40)
	createFakeTile(t, dir, 16, 100, 200)

	var visited []maptile.Tile
	err := WalkTiles(dir, func(tile maptile.Tile, pbfPath string) error {
		visited = append(visited, tile)
		if filepath.Ext(pbfPath) != ".pbf" {
			t.Errorf("visited non-pbf path %s", pbfPath)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WalkTiles: %v", err)
	}
	if len(visited) != 3 {
		t.Fatalf("got %d tiles, want 3", len(visited))
	}

	want := map[maptile.Tile]bool{
		maptile.New(10, 20, 5):   true,
		maptile.New(30, 40, 7):   true,
		maptile.New(100, 200, 16): true,
	}
	for _, tile := range visited {
		if !want[tile] {
			t.Errorf("unexpected tile %v", tile)
		}
	}
}

func TestWalkTilesEmptyDir(t *testing.T) {
	dir := t.TempDir()
	count := 0
	if err := WalkTiles(dir, func(maptile.Tile, string) error { count++; return nil }); err != nil {
		t.Fatalf("WalkTiles: %v", err)
	}
	if count != 0 {
		t.Fatalf("got %d tiles, want 0", count)
	}
}

func TestWalkTilesIgnoresNonPBFFiles(t *testing.T) {
	dir := t.TempDir()
	createFakeTile(t, dir, 5, 10, 20)
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	count := 0
	if err := WalkTiles(dir, func(maptile.Tile, string) error { count++; return nil }); err != nil {
		t.Fatalf("WalkTiles: %v", err)
	}
	if count != 1 {
		t.Fatalf("got %d tiles, want 1", count)
	}
}
