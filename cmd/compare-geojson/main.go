package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// GeoJSON and Feature mirror the shape indexbuild.GeoJSON renders:
// "id" (the folded FeatureID), "Name", "length", and an optional
// "curvature" property.
type GeoJSON struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: compare-geojson <before.geojson> <after.geojson>")
		fmt.Println("Example: compare-geojson before/delaware.geojson after/delaware.geojson")
		fmt.Println("Compares two indexbuild.GeoJSON exports of the same source, e.g. before")
		fmt.Println("and after re-ingesting an updated KMZ archive.")
		os.Exit(1)
	}

	beforePath := os.Args[1]
	afterPath := os.Args[2]

	before, err := loadGeoJSON(beforePath)
	if err != nil {
		fmt.Printf("Error loading before GeoJSON: %v\n", err)
		os.Exit(1)
	}

	after, err := loadGeoJSON(afterPath)
	if err != nil {
		fmt.Printf("Error loading after GeoJSON: %v\n", err)
		os.Exit(1)
	}

	compare(before, after, beforePath, afterPath)
}

func loadGeoJSON(path string) (*GeoJSON, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var gj GeoJSON
	if err := json.Unmarshal(data, &gj); err != nil {
		return nil, err
	}

	return &gj, nil
}

func compare(before, after *GeoJSON, beforePath, afterPath string) {
	fmt.Println("=" + strings.Repeat("=", 70))
	fmt.Println("GeoJSON Comparison")
	fmt.Println("=" + strings.Repeat("=", 70))
	fmt.Printf("BEFORE: %s\n", beforePath)
	fmt.Printf("AFTER:  %s\n", afterPath)
	fmt.Println()

	fmt.Println("Feature counts:")
	fmt.Printf("  BEFORE features: %d\n", len(before.Features))
	fmt.Printf("  AFTER features:  %d\n", len(after.Features))
	diff := len(after.Features) - len(before.Features)
	switch {
	case diff > 0:
		fmt.Printf("  Difference:      +%d (AFTER has more)\n", diff)
	case diff < 0:
		fmt.Printf("  Difference:      %d (AFTER has fewer)\n", diff)
	default:
		fmt.Printf("  Difference:      0 (equal)\n")
	}
	fmt.Println()

	beforeCoordCount := countTotalCoordinates(before)
	afterCoordCount := countTotalCoordinates(after)
	fmt.Println("Coordinate point counts:")
	fmt.Printf("  BEFORE total coordinates: %d\n", beforeCoordCount)
	fmt.Printf("  AFTER total coordinates:  %d\n", afterCoordCount)
	coordDiff := afterCoordCount - beforeCoordCount
	switch {
	case coordDiff > 0:
		fmt.Printf("  Difference:               +%d\n", coordDiff)
	case coordDiff < 0:
		fmt.Printf("  Difference:               %d -- possible data loss\n", coordDiff)
	default:
		fmt.Printf("  Difference:               0\n")
	}
	fmt.Println()

	fmt.Println("Geometry types:")
	beforeTypes := countGeometryTypes(before)
	afterTypes := countGeometryTypes(after)

	fmt.Println("  BEFORE:")
	for gtype, count := range beforeTypes {
		fmt.Printf("    %s: %d\n", gtype, count)
	}
	fmt.Println("  AFTER:")
	for gtype, count := range afterTypes {
		fmt.Printf("    %s: %d\n", gtype, count)
	}
	fmt.Println()

	fmt.Println("Road name analysis:")
	beforeNames := extractRoadNames(before)
	afterNames := extractRoadNames(after)

	fmt.Printf("  BEFORE unique road names: %d\n", len(beforeNames))
	fmt.Printf("  AFTER unique road names:  %d\n", len(afterNames))

	missing := findMissing(beforeNames, afterNames)
	extra := findMissing(afterNames, beforeNames)

	if len(missing) > 0 {
		fmt.Printf("  Roads in BEFORE but not AFTER: %d\n", len(missing))
		printUpTo(missing, 10)
	} else {
		fmt.Println("  All BEFORE roads found in AFTER")
	}

	if len(extra) > 0 {
		fmt.Printf("  Roads in AFTER but not BEFORE: %d\n", len(extra))
	}
	fmt.Println()

	fmt.Println("FeatureID stability (the uuidToFeatureID fold is deterministic,")
	fmt.Println("so an unchanged road should keep the same id across re-ingestion):")
	changedIDs := comparefeatureIDsByName(before, after)
	if len(changedIDs) > 0 {
		fmt.Printf("  %d road(s) with the same name changed FeatureID:\n", len(changedIDs))
		printUpTo(changedIDs, 10)
	} else {
		fmt.Println("  No FeatureID drift detected for roads present in both files")
	}
	fmt.Println()

	fmt.Println("Curvature/length drift:")
	curvatureChanged, lengthChanged := compareAttributes(before, after)
	fmt.Printf("  Roads with changed curvature rating: %d\n", curvatureChanged)
	fmt.Printf("  Roads with changed length (>1m):     %d\n", lengthChanged)
	fmt.Println()

	fmt.Println("Property completeness:")
	beforeProps := analyzeProperties(before)
	afterProps := analyzeProperties(after)

	fmt.Println("  BEFORE properties found:")
	for prop, count := range beforeProps {
		fmt.Printf("    %s: %d features (%.1f%%)\n", prop, count, float64(count)/float64(len(before.Features))*100)
	}
	fmt.Println("  AFTER properties found:")
	for prop, count := range afterProps {
		fmt.Printf("    %s: %d features (%.1f%%)\n", prop, count, float64(count)/float64(len(after.Features))*100)
	}
	fmt.Println()

	fmt.Println("=" + strings.Repeat("=", 70))
	fmt.Println("Assessment:")
	if coordDiff < 0 {
		fmt.Println("  CRITICAL: coordinate data loss detected")
		fmt.Printf("    %d coordinates missing from AFTER\n", -coordDiff)
	} else {
		fmt.Println("  No coordinate data loss")
	}
	if len(changedIDs) > 0 {
		fmt.Println("  WARNING: FeatureID drift breaks any index referencing the old ids")
		fmt.Println("    (trie leaves and MVT feature ids must be re-published together)")
	}
	if len(missing) > 0 {
		fmt.Printf("  WARNING: %d road names missing from AFTER -- investigate KML parsing\n", len(missing))
	}
	fmt.Println("=" + strings.Repeat("=", 70))
}

func printUpTo(items []string, n int) {
	if len(items) <= n {
		for _, item := range items {
			fmt.Printf("    - %s\n", item)
		}
		return
	}
	for i := 0; i < n; i++ {
		fmt.Printf("    - %s\n", items[i])
	}
	fmt.Printf("    ... and %d more\n", len(items)-n)
}

func countTotalCoordinates(gj *GeoJSON) int {
	total := 0
	for i := range gj.Features {
		total += countFeatureCoordinates(&gj.Features[i])
	}
	return total
}

func countFeatureCoordinates(f *Feature) int {
	var coords interface{}
	if err := json.Unmarshal(f.Geometry.Coordinates, &coords); err != nil {
		return 0
	}
	return countCoords(coords)
}

func countCoords(coords interface{}) int {
	switch v := coords.(type) {
	case []interface{}:
		if len(v) == 0 {
			return 0
		}
		if _, ok := v[0].(float64); ok {
			return 1
		}
		total := 0
		for _, item := range v {
			total += countCoords(item)
		}
		return total
	default:
		return 0
	}
}

func countGeometryTypes(gj *GeoJSON) map[string]int {
	types := make(map[string]int)
	for _, f := range gj.Features {
		types[f.Geometry.Type]++
	}
	return types
}

func extractRoadNames(gj *GeoJSON) []string {
	names := make(map[string]bool)
	for _, f := range gj.Features {
		if name := getPropertyString(f.Properties, "Name"); name != "" {
			names[name] = true
		}
	}

	result := make([]string, 0, len(names))
	for name := range names {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

func findMissing(set1, set2 []string) []string {
	set2Map := make(map[string]bool)
	for _, name := range set2 {
		set2Map[name] = true
	}

	missing := []string{}
	for _, name := range set1 {
		if !set2Map[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// comparefeatureIDsByName matches roads present in both files by name
// and reports those whose "id" (FeatureID) property changed.
func comparefeatureIDsByName(before, after *GeoJSON) []string {
	beforeIDs := make(map[string]float64)
	for _, f := range before.Features {
		name := getPropertyString(f.Properties, "Name")
		if id, ok := getPropertyNumber(f.Properties, "id"); ok && name != "" {
			beforeIDs[name] = id
		}
	}

	var changed []string
	for _, f := range after.Features {
		name := getPropertyString(f.Properties, "Name")
		id, ok := getPropertyNumber(f.Properties, "id")
		if !ok || name == "" {
			continue
		}
		if oldID, found := beforeIDs[name]; found && oldID != id {
			changed = append(changed, fmt.Sprintf("%s (%.0f -> %.0f)", name, oldID, id))
		}
	}
	sort.Strings(changed)
	return changed
}

// compareAttributes counts roads present in both files whose curvature
// property differs, and those whose length differs by more than 1 m.
func compareAttributes(before, after *GeoJSON) (curvatureChanged, lengthChanged int) {
	beforeByName := make(map[string]map[string]interface{})
	for _, f := range before.Features {
		if name := getPropertyString(f.Properties, "Name"); name != "" {
			beforeByName[name] = f.Properties
		}
	}

	for _, f := range after.Features {
		name := getPropertyString(f.Properties, "Name")
		oldProps, ok := beforeByName[name]
		if !ok {
			continue
		}
		oldCurvature := getPropertyString(oldProps, "curvature")
		newCurvature := getPropertyString(f.Properties, "curvature")
		if oldCurvature != newCurvature {
			curvatureChanged++
		}
		oldLength, oldOK := getPropertyNumber(oldProps, "length")
		newLength, newOK := getPropertyNumber(f.Properties, "length")
		if oldOK && newOK {
			delta := oldLength - newLength
			if delta < 0 {
				delta = -delta
			}
			if delta > 1 {
				lengthChanged++
			}
		}
	}
	return curvatureChanged, lengthChanged
}

func analyzeProperties(gj *GeoJSON) map[string]int {
	props := make(map[string]int)
	for _, f := range gj.Features {
		for key := range f.Properties {
			props[key]++
		}
	}
	return props
}

func getPropertyString(props map[string]interface{}, key string) string {
	if val, ok := props[key]; ok {
		switch v := val.(type) {
		case string:
			return v
		case float64:
			return fmt.Sprintf("%v", v)
		}
	}
	return ""
}

func getPropertyNumber(props map[string]interface{}, key string) (float64, bool) {
	val, ok := props[key]
	if !ok {
		return 0, false
	}
	n, ok := val.(float64)
	return n, ok
}
