package indexbuild

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// namespace for deterministic per-source, per-placemark identifiers,
// mirroring the teacher's road UUIDs.
var namespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// Placemark is one parsed road (a KML Folder) ready to be tokenized,
// tiled, and written into a trie snapshot.
type Placemark struct {
	UUID      string
	FeatureID uint32
	Name      string
	Bound     orb.Bound
	LengthM   float64
	Curvature *string

	geometry geojsonGeometry
}

type geojsonGeometry struct {
	Type        string
	LineString  [][]float64
	MultiLine   [][][]float64
}

// ParseKML reads a doc.kml file — one Folder per road, one or more
// Placemark LineString segments per Folder — and returns a Placemark
// per road with a non-empty geometry.
func ParseKML(ctx context.Context, kmlPath, sourceID string) ([]Placemark, error) {
	logger := slog.With("kml_path", kmlPath, "source", sourceID)
	logger.Info("parsing KML")

	kmlContent, err := os.ReadFile(kmlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read KML file: %w", err)
	}

	var doc struct {
		XMLName  xml.Name `xml:"http://www.opengis.net/kml/2.2 kml"`
		Document struct {
			Folders []struct {
				Name        string `xml:"http://www.opengis.net/kml/2.2 name"`
				Description string `xml:"http://www.opengis.net/kml/2.2 description"`
				Placemarks  []struct {
					LineString struct {
						Coordinates string `xml:"http://www.opengis.net/kml/2.2 coordinates"`
					} `xml:"http://www.opengis.net/kml/2.2 LineString"`
				} `xml:"http://www.opengis.net/kml/2.2 Placemark"`
			} `xml:"http://www.opengis.net/kml/2.2 Folder"`
		} `xml:"http://www.opengis.net/kml/2.2 Document"`
	}

	if err := xml.Unmarshal(kmlContent, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse KML: %w", err)
	}

	logger.Debug("KML parsed", "folders", len(doc.Document.Folders))

	var placemarks []Placemark
	unnamed := 0
	for _, folder := range doc.Document.Folders {
		name := folder.Name
		if name == "" {
			name = fmt.Sprintf("road_%d", unnamed)
			unnamed++
		}

		var segments [][][]float64
		for _, pm := range folder.Placemarks {
			if pm.LineString.Coordinates == "" {
				continue
			}
			coords := parseKMLCoordinates(pm.LineString.Coordinates)
			if len(coords) < 2 {
				continue
			}
			segments = append(segments, coords)
		}
		if len(segments) == 0 {
			continue
		}

		geom := buildGeometry(segments)
		bound, ok := geometryBound(geom)
		if !ok {
			continue
		}

		uuidStr := deterministicUUID(sourceID, bound.Min)

		placemarks = append(placemarks, Placemark{
			UUID:      uuidStr,
			FeatureID: uuidToFeatureID(uuidStr),
			Name:      name,
			Bound:     bound,
			LengthM:   geometryLength(geom),
			Curvature: parseCurvature(folder.Description),
			geometry:  geom,
		})
	}

	logger.Info("placemarks parsed", "count", len(placemarks))
	return placemarks, nil
}

func buildGeometry(segments [][][]float64) geojsonGeometry {
	if len(segments) == 1 {
		return geojsonGeometry{Type: "LineString", LineString: segments[0]}
	}
	return geojsonGeometry{Type: "MultiLineString", MultiLine: segments}
}

func geometryBound(g geojsonGeometry) (orb.Bound, bool) {
	var b orb.Bound
	first := true
	extend := func(lng, lat float64) {
		p := orb.Point{lng, lat}
		if first {
			b = orb.Bound{Min: p, Max: p}
			first = false
			return
		}
		b = b.Extend(p)
	}

	switch g.Type {
	case "LineString":
		for _, c := range g.LineString {
			extend(c[0], c[1])
		}
	case "MultiLineString":
		for _, seg := range g.MultiLine {
			for _, c := range seg {
				extend(c[0], c[1])
			}
		}
	}
	return b, !first
}

func geometryLength(g geojsonGeometry) float64 {
	switch g.Type {
	case "LineString":
		return lineStringLength(g.LineString)
	case "MultiLineString":
		var total float64
		for _, seg := range g.MultiLine {
			total += lineStringLength(seg)
		}
		return total
	}
	return 0
}

// parseKMLCoordinates parses a KML coordinate string ("lng,lat,elev
// lng,lat,elev ...") into [[lng, lat], ...].
func parseKMLCoordinates(coordString string) [][]float64 {
	var coordinates [][]float64
	for _, part := range strings.Fields(strings.TrimSpace(coordString)) {
		values := strings.Split(part, ",")
		if len(values) < 2 {
			continue
		}
		lng, err1 := strconv.ParseFloat(values[0], 64)
		lat, err2 := strconv.ParseFloat(values[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		coordinates = append(coordinates, []float64{lng, lat})
	}
	return coordinates
}

func haversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadius = 6371000.0

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadius * c
}

func lineStringLength(coords [][]float64) float64 {
	if len(coords) < 2 {
		return 0
	}
	var total float64
	for i := 0; i < len(coords)-1; i++ {
		lng1, lat1 := coords[i][0], coords[i][1]
		lng2, lat2 := coords[i+1][0], coords[i+1][1]
		total += haversineDistance(lat1, lng1, lat2, lng2)
	}
	return total
}

// parseCurvature extracts a curvature value from a KML folder
// description, looking for "c_NNN" or "curvature: NNN".
func parseCurvature(description string) *string {
	if description == "" {
		return nil
	}
	if m := curvaturePrefixRe.FindStringSubmatch(description); len(m) > 1 {
		return &m[1]
	}
	if m := curvatureWordRe.FindStringSubmatch(description); len(m) > 1 {
		return &m[1]
	}
	return nil
}

var (
	curvaturePrefixRe = regexp.MustCompile(`c_(\d+)`)
	curvatureWordRe   = regexp.MustCompile(`curvature:\s*(\d+)`)
)

// deterministicUUID derives a stable id from the source and a point of
// the placemark (ParseKML passes its bound's minimum corner), so
// re-ingesting the same archive
// produces the same feature identity.
func deterministicUUID(sourceID string, p orb.Point) string {
	name := fmt.Sprintf("%s:%.6f,%.6f", sourceID, p[1], p[0])
	return uuid.NewSHA1(namespace, []byte(name)).String()
}

// uuidToFeatureID folds a UUID down to the 32 bits a retrieval.FeatureID
// carries. Collisions within one tile are possible in principle but
// vanishingly unlikely for any real tile's feature count; this is the
// same trade every fixed-width feature id format outside an indexed
// sequence makes.
func uuidToFeatureID(s string) uint32 {
	u, err := uuid.Parse(s)
	if err != nil {
		return 0
	}
	b := u[:]
	return binary.BigEndian.Uint32(b[12:16])
}

// GeoJSON renders a set of placemarks as a FeatureCollection suitable
// for tippecanoe, carrying the same properties the teacher's pipeline
// includes so downstream tiles keep id/name/curvature/length.
func GeoJSON(placemarks []Placemark) ([]byte, error) {
	features := make([]map[string]interface{}, 0, len(placemarks))
	for _, p := range placemarks {
		var geometry map[string]interface{}
		switch p.geometry.Type {
		case "LineString":
			geometry = map[string]interface{}{"type": "LineString", "coordinates": p.geometry.LineString}
		case "MultiLineString":
			geometry = map[string]interface{}{"type": "MultiLineString", "coordinates": p.geometry.MultiLine}
		default:
			continue
		}

		props := map[string]interface{}{
			"id":     p.FeatureID,
			"Name":   p.Name,
			"length": p.LengthM,
		}
		if p.Curvature != nil {
			props["curvature"] = *p.Curvature
		}

		features = append(features, map[string]interface{}{
			"type":       "Feature",
			"properties": props,
			"geometry":   geometry,
		})
	}

	return json.Marshal(map[string]interface{}{
		"type":     "FeatureCollection",
		"features": features,
	})
}

// WriteGeoJSON writes the rendered FeatureCollection to a temp file and
// returns its path, the shape GenerateTiles expects as input.
func WriteGeoJSON(placemarks []Placemark, sourceID string) (string, error) {
	data, err := GeoJSON(placemarks)
	if err != nil {
		return "", fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}
	path := filepath.Join(os.TempDir(), fmt.Sprintf("geofts-%s.geojson", sourceID))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write GeoJSON file: %w", err)
	}
	return path, nil
}
