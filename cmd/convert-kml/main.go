package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mumuon/drivefinder/geofts/indexbuild"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: convert-kml <kml-file> <output-geojson>")
		fmt.Println("Example: convert-kml input.kml output.geojson")
		os.Exit(1)
	}

	kmlPath := os.Args[1]
	outputPath := os.Args[2]

	sourceID := strings.TrimSuffix(filepath.Base(kmlPath), filepath.Ext(kmlPath))

	ctx := context.Background()
	placemarks, err := indexbuild.ParseKML(ctx, kmlPath, sourceID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	data, err := indexbuild.GeoJSON(placemarks)
	if err != nil {
		fmt.Printf("Error building GeoJSON: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		fmt.Printf("Error writing output file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Converted to GeoJSON: %d features\n", len(placemarks))
	fmt.Printf("   Output: %s\n", outputPath)
}
