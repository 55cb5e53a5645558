package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/maptile"

	"github.com/mumuon/drivefinder/geofts/tilestore"
)

// TileStats aggregates the directory-walk mode across every tile found.
type TileStats struct {
	TotalTiles       int
	TotalFeatures    int
	FeaturesByZoom   map[int]int
	UniqueFeatureIDs map[uint32]bool
	LayersFound      map[string]int
	TriesOpened      int
	VocabularySize   map[string]int
	LeavesWithoutPBF int
}

// TileInfo is the JSON/verbose shape for single-tile inspection.
type TileInfo struct {
	Path          string        `json:"tile"`
	Z             int           `json:"z"`
	X             int           `json:"x"`
	Y             int           `json:"y"`
	FileSizeBytes int64         `json:"fileSizeBytes"`
	Layers        []LayerInfo   `json:"layers"`
	TrieTokens    int           `json:"trieTokens,omitempty"`
	TrieLeaves    []uint32      `json:"trieLeaves,omitempty"`
	LeavesInPBF   int           `json:"leavesMatchedInPBF,omitempty"`
}

type LayerInfo struct {
	Name         string        `json:"name"`
	FeatureCount int           `json:"featureCount"`
	Features     []FeatureInfo `json:"features"`
}

type FeatureInfo struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
}

func main() {
	tilePath := flag.String("tile", "", "Path to a single .pbf tile file to inspect")
	verbose := flag.Bool("verbose", false, "Show all features (not just first 10)")
	jsonOutput := flag.Bool("json", false, "Output in JSON format")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: analyze-tiles [options] [tile-directory]\n\n")
		fmt.Fprintf(os.Stderr, "Modes:\n")
		fmt.Fprintf(os.Stderr, "  1. Single tile inspection: analyze-tiles --tile <path>\n")
		fmt.Fprintf(os.Stderr, "  2. Directory analysis:     analyze-tiles <directory>\n\n")
		fmt.Fprintf(os.Stderr, "A sibling <tile>.trie file, if present next to the .pbf, is opened\n")
		fmt.Fprintf(os.Stderr, "through tilestore.Handle and cross-checked against the tile's own\n")
		fmt.Fprintf(os.Stderr, "feature ids, the same way the retrieval engine intersects a tile's\n")
		fmt.Fprintf(os.Stderr, "text and spatial sections.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *tilePath != "" {
		info, err := inspectSingleTile(*tilePath)
		if err != nil {
			fmt.Printf("Error inspecting tile: %v\n", err)
			os.Exit(1)
		}

		if *jsonOutput {
			printTileJSON(info)
		} else {
			printTileInfo(info, *verbose)
		}
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	tileDir := args[0]

	stats := &TileStats{
		FeaturesByZoom:   make(map[int]int),
		UniqueFeatureIDs: make(map[uint32]bool),
		LayersFound:      make(map[string]int),
		VocabularySize:   make(map[string]int),
	}

	if err := analyzeTileDirectory(tileDir, stats); err != nil {
		fmt.Printf("Error analyzing tiles: %v\n", err)
		os.Exit(1)
	}

	printStats(stats, tileDir)
}

// openTrie opens the .trie file sitting next to a .pbf tile, if any,
// through the same tilestore.Handle the registry uses at query time.
func openTrie(pbfPath string, tile maptile.Tile) []tilestore.Feature {
	triePath := strings.TrimSuffix(pbfPath, filepath.Ext(pbfPath)) + ".trie"
	if _, err := os.Stat(triePath); err != nil {
		return nil
	}

	fetcher := &tilestore.LocalFetcher{RootDir: filepath.Dir(triePath)}
	row := tilestore.Row{ID: triePath, Tile: tile, TrieKey: filepath.Base(triePath)}
	root, _, err := tilestore.NewHandle(row, fetcher).OpenTextIndex()
	if err != nil {
		return nil
	}
	features, ok := root.([]tilestore.Feature)
	if !ok {
		return nil
	}
	return features
}

func inspectSingleTile(path string) (*TileInfo, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	z, x, y, err := parseTileCoordinates(path)
	if err != nil {
		z, x, y = 0, 0, 0
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tile: %w", err)
	}

	layers, err := mvt.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal MVT: %w", err)
	}

	info := &TileInfo{
		Path:          path,
		Z:             z,
		X:             x,
		Y:             y,
		FileSizeBytes: fileInfo.Size(),
		Layers:        make([]LayerInfo, 0, len(layers)),
	}

	pbfIDs := make(map[uint32]bool)
	for _, layer := range layers {
		layerInfo := LayerInfo{
			Name:         layer.Name,
			FeatureCount: len(layer.Features),
			Features:     make([]FeatureInfo, 0, len(layer.Features)),
		}

		for _, feature := range layer.Features {
			featureInfo := FeatureInfo{
				Type:       feature.Geometry.GeoJSONType(),
				Properties: feature.Properties,
			}
			layerInfo.Features = append(layerInfo.Features, featureInfo)
			if id, ok := featureIDProperty(feature.Properties); ok {
				pbfIDs[id] = true
			}
		}

		info.Layers = append(info.Layers, layerInfo)
	}

	tile := maptile.New(uint32(x), uint32(y), maptile.Zoom(z))
	if trie := openTrie(path, tile); trie != nil {
		matched := 0
		leaves := make([]uint32, 0, len(trie))
		for _, f := range trie {
			leaf := uint32(f.Leaf)
			leaves = append(leaves, leaf)
			info.TrieTokens += len(f.Tokens)
			if pbfIDs[leaf] {
				matched++
			}
		}
		info.TrieLeaves = leaves
		info.LeavesInPBF = matched
	}

	return info, nil
}

// featureIDProperty reads the numeric id tippecanoe carries through
// from indexbuild's GeoJSON "id" property, the same leaf value space
// the trie snapshot's Feature.Leaf uses.
func featureIDProperty(props map[string]interface{}) (uint32, bool) {
	val, ok := props["id"]
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case float64:
		return uint32(v), true
	case int64:
		return uint32(v), true
	case uint64:
		return uint32(v), true
	case string:
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return 0, false
		}
		return uint32(n), true
	default:
		return 0, false
	}
}

func parseTileCoordinates(path string) (z, x, y int, err error) {
	pathWithoutExt := strings.TrimSuffix(path, ".pbf")

	re := regexp.MustCompile(`(\d+)/(\d+)/(\d+)$`)
	matches := re.FindStringSubmatch(pathWithoutExt)

	if len(matches) != 4 {
		return 0, 0, 0, fmt.Errorf("could not parse tile coordinates from path")
	}

	z, _ = strconv.Atoi(matches[1])
	x, _ = strconv.Atoi(matches[2])
	y, _ = strconv.Atoi(matches[3])

	return z, x, y, nil
}

func printTileInfo(info *TileInfo, verbose bool) {
	fmt.Println("=" + strings.Repeat("=", 78))
	fmt.Printf("Tile: %s\n", filepath.Base(filepath.Dir(filepath.Dir(filepath.Dir(info.Path))))+"/"+
		filepath.Base(filepath.Dir(filepath.Dir(info.Path)))+"/"+
		filepath.Base(filepath.Dir(info.Path))+"/"+
		filepath.Base(info.Path))
	fmt.Println("=" + strings.Repeat("=", 78))
	fmt.Println()

	fmt.Println("Tile info:")
	if info.Z != 0 || info.X != 0 || info.Y != 0 {
		fmt.Printf("  Coordinates: Z%d, X%d, Y%d\n", info.Z, info.X, info.Y)
	}
	fmt.Printf("  File size: %s\n", formatBytes(info.FileSizeBytes))
	fmt.Println()

	fmt.Printf("Layers: %d\n\n", len(info.Layers))

	for _, layer := range info.Layers {
		fmt.Printf("Layer: %s\n", layer.Name)
		fmt.Printf("  Features: %d\n\n", layer.FeatureCount)

		featuresToShow := layer.Features
		if !verbose && len(layer.Features) > 10 {
			featuresToShow = layer.Features[:10]
		}

		for i, feature := range featuresToShow {
			fmt.Printf("  Feature %d (%s)\n", i+1, feature.Type)

			keys := make([]string, 0, len(feature.Properties))
			for k := range feature.Properties {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			for _, key := range keys {
				value := feature.Properties[key]
				fmt.Printf("    %s: %v\n", key, value)
			}
			fmt.Println()
		}

		if !verbose && len(layer.Features) > 10 {
			fmt.Printf("  ... (%d more features, use --verbose to show all)\n\n", len(layer.Features)-10)
		}
	}

	if info.TrieLeaves != nil {
		fmt.Println("Text-index section (sibling .trie file):")
		fmt.Printf("  Leaf entries:          %d\n", len(info.TrieLeaves))
		fmt.Printf("  Tokens across leaves:  %d\n", info.TrieTokens)
		fmt.Printf("  Leaves matched in PBF: %d/%d\n", info.LeavesInPBF, len(info.TrieLeaves))
		if info.LeavesInPBF < len(info.TrieLeaves) {
			fmt.Println("  WARNING: some trie leaves have no matching feature id in this tile's PBF")
		}
		fmt.Println()
	}

	fmt.Println("=" + strings.Repeat("=", 78))
}

func printTileJSON(info *TileInfo) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(info); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func analyzeTileDirectory(dir string, stats *TileStats) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".pbf") {
			z, _, _, _ := parseTileCoordinates(path)
			if err := analyzeTile(path, z, stats); err != nil {
				fmt.Printf("Warning: failed to analyze %s: %v\n", path, err)
			}
		}
		return nil
	})
}

func analyzeTile(path string, z int, stats *TileStats) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	layers, err := mvt.Unmarshal(data)
	if err != nil {
		return err
	}

	stats.TotalTiles++

	pbfIDs := make(map[uint32]bool)
	for _, layer := range layers {
		stats.LayersFound[layer.Name]++

		numFeatures := len(layer.Features)
		stats.TotalFeatures += numFeatures
		stats.FeaturesByZoom[z] += numFeatures

		if layer.Name == "roads" {
			for _, feature := range layer.Features {
				if id, ok := featureIDProperty(feature.Properties); ok {
					stats.UniqueFeatureIDs[id] = true
					pbfIDs[id] = true
				}
			}
		}
	}

	_, zx, zy, _ := parseTileCoordinates(path)
	tile := maptile.New(uint32(zx), uint32(zy), maptile.Zoom(z))
	if trie := openTrie(path, tile); trie != nil {
		stats.TriesOpened++
		for _, f := range trie {
			for _, token := range f.Tokens {
				stats.VocabularySize[token]++
			}
			if !pbfIDs[uint32(f.Leaf)] {
				stats.LeavesWithoutPBF++
			}
		}
	}

	return nil
}

func printStats(stats *TileStats, dir string) {
	fmt.Println("=" + strings.Repeat("=", 70))
	fmt.Printf("Tile Analysis: %s\n", filepath.Base(dir))
	fmt.Println("=" + strings.Repeat("=", 70))
	fmt.Println()

	fmt.Println("Tile counts:")
	fmt.Printf("  Total tiles:       %d\n", stats.TotalTiles)
	fmt.Printf("  Total features:    %d\n", stats.TotalFeatures)
	fmt.Printf("  Unique feature ids: %d\n", len(stats.UniqueFeatureIDs))
	fmt.Println()

	fmt.Println("Layers found:")
	for layer, count := range stats.LayersFound {
		fmt.Printf("  %s: %d tiles\n", layer, count)
	}
	fmt.Println()

	fmt.Println("Features by zoom level:")
	zooms := make([]int, 0, len(stats.FeaturesByZoom))
	for z := range stats.FeaturesByZoom {
		zooms = append(zooms, z)
	}
	sort.Ints(zooms)

	for _, z := range zooms {
		count := stats.FeaturesByZoom[z]
		bar := strings.Repeat("#", min(count/10, 50))
		fmt.Printf("  Z%2d: %6d features %s\n", z, count, bar)
	}
	fmt.Println()

	fmt.Println("Text-index sections (.trie siblings):")
	fmt.Printf("  Tiles with a trie opened: %d/%d\n", stats.TriesOpened, stats.TotalTiles)
	fmt.Printf("  Distinct tokens indexed:  %d\n", len(stats.VocabularySize))
	if stats.LeavesWithoutPBF > 0 {
		fmt.Printf("  WARNING: %d trie leaves have no matching feature id in their own tile's PBF\n", stats.LeavesWithoutPBF)
	} else if stats.TriesOpened > 0 {
		fmt.Println("  Every trie leaf matched a feature id in its own tile's PBF")
	}
	fmt.Println()

	fmt.Println("=" + strings.Repeat("=", 70))
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
