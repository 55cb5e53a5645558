package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mumuon/drivefinder/geofts/indexbuild"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: analyze-kml <path-to-kmz-or-kml> [source-id]")
		fmt.Println("Example: analyze-kml ~/data/df/curvature-data/delaware.kmz")
		os.Exit(1)
	}

	filePath := os.Args[1]
	sourceID := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	if len(os.Args) >= 3 {
		sourceID = os.Args[2]
	}

	ctx := context.Background()
	kmlPath := filePath
	if strings.HasSuffix(strings.ToLower(filePath), ".kmz") {
		dataDir, name := filepath.Split(filePath)
		name = strings.TrimSuffix(name, filepath.Ext(name))
		extracted, err := indexbuild.ExtractKMZ(ctx, name, dataDir)
		if err != nil {
			fmt.Printf("Error extracting KML from KMZ: %v\n", err)
			os.Exit(1)
		}
		defer indexbuild.CleanupExtraction(extracted)
		kmlPath = extracted
	}

	placemarks, err := indexbuild.ParseKML(ctx, kmlPath, sourceID)
	if err != nil {
		fmt.Printf("Error parsing KML: %v\n", err)
		os.Exit(1)
	}

	analyze(placemarks, filepath.Base(filePath))
}

func analyze(placemarks []indexbuild.Placemark, filename string) {
	totalPlacemarks := len(placemarks)
	withCurvature := 0
	totalLength := 0.0
	vocabulary := make(map[string]int)
	leaves := make(map[uint32]int)
	sampleRoads := []string{}

	for i, p := range placemarks {
		if p.Curvature != nil {
			withCurvature++
		}
		totalLength += p.LengthM
		leaves[p.FeatureID]++

		for _, token := range indexbuild.Tokenize(p.Name) {
			vocabulary[token]++
		}

		if i < 10 {
			sampleRoads = append(sampleRoads, p.Name)
		}
	}

	collisions := 0
	for _, count := range leaves {
		if count > 1 {
			collisions++
		}
	}

	avgLength := 0.0
	if totalPlacemarks > 0 {
		avgLength = totalLength / float64(totalPlacemarks)
	}

	fmt.Println("=" + strings.Repeat("=", 70))
	fmt.Printf("KML/KMZ Analysis: %s\n", filename)
	fmt.Println("=" + strings.Repeat("=", 70))
	fmt.Println()

	fmt.Println("Placemark counts:")
	fmt.Printf("  Roads (one feature per folder):  %d\n", totalPlacemarks)
	fmt.Printf("  With curvature rating:           %d (%.1f%%)\n", withCurvature, pct(withCurvature, totalPlacemarks))
	fmt.Printf("  Total length:                    %.1f m\n", totalLength)
	fmt.Printf("  Average length per road:         %.1f m\n", avgLength)
	fmt.Println()

	fmt.Println("Token vocabulary (as indexbuild.Tokenize would index it):")
	fmt.Printf("  Distinct tokens:                 %d\n", len(vocabulary))
	topTokens := mostCommon(vocabulary, 10)
	for _, t := range topTokens {
		fmt.Printf("  %-20s %d roads\n", t.token, t.count)
	}
	fmt.Println()

	fmt.Println("FeatureID assignment (uuidToFeatureID fold):")
	fmt.Printf("  Distinct leaf ids:                %d\n", len(leaves))
	if collisions > 0 {
		fmt.Printf("  WARNING: %d leaf ids shared by more than one road\n", collisions)
	} else {
		fmt.Println("  No leaf id collisions in this source")
	}
	fmt.Println()

	fmt.Println("Sample road names (first 10):")
	for i, name := range sampleRoads {
		fmt.Printf("  %2d. %s\n", i+1, name)
	}
	fmt.Println()
	fmt.Println("=" + strings.Repeat("=", 70))
}

type tokenCount struct {
	token string
	count int
}

func mostCommon(vocabulary map[string]int, n int) []tokenCount {
	counts := make([]tokenCount, 0, len(vocabulary))
	for token, count := range vocabulary {
		counts = append(counts, tokenCount{token, count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].token < counts[j].token
	})
	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
