package indexbuild

import (
	"context"
	"math"
	"testing"
)

func TestHaversineDistance(t *testing.T) {
	testCases := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		expectedMeters         float64
		tolerance              float64
	}{
		{"Seattle to Portland (~233 km)", 47.6062, -122.3321, 45.5152, -122.6784, 233000, 5000},
		{"Zero distance", 45.0, -122.0, 45.0, -122.0, 0, 1},
		{"1 degree latitude (~111 km)", 45.0, -122.0, 46.0, -122.0, 111000, 2000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			distance := haversineDistance(tc.lat1, tc.lng1, tc.lat2, tc.lng2)
			if diff := math.Abs(distance - tc.expectedMeters); diff > tc.tolerance {
				t.Errorf("distance = %.0fm, want %.0fm +/- %.0fm", distance, tc.expectedMeters, tc.tolerance)
			}
		})
	}
}

func TestParseKMLCoordinates(t *testing.T) {
	coords := parseKMLCoordinates("-122.1,45.1,0 -122.2,45.2,0 -122.3,45.3,0")
	if len(coords) != 3 {
		t.Fatalf("got %d coordinates, want 3", len(coords))
	}
	if coords[0][0] != -122.1 || coords[0][1] != 45.1 {
		t.Fatalf("first coordinate = %v, want [-122.1 45.1]", coords[0])
	}
}

func TestParseKMLCoordinatesSkipsMalformed(t *testing.T) {
	coords := parseKMLCoordinates("-122.1,45.1,0 garbage -122.3,45.3,0")
	if len(coords) != 2 {
		t.Fatalf("got %d coordinates, want 2 (malformed entry skipped)", len(coords))
	}
}

func TestParseCurvature(t *testing.T) {
	cases := []struct {
		description string
		want        string
		wantNil     bool
	}{
		{"Tail of the Dragon c_1200", "1200", false},
		{"curvature: 850", "850", false},
		{"no curvature info here", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got := parseCurvature(tc.description)
		if tc.wantNil {
			if got != nil {
				t.Errorf("parseCurvature(%q) = %q, want nil", tc.description, *got)
			}
			continue
		}
		if got == nil || *got != tc.want {
			t.Errorf("parseCurvature(%q) = %v, want %q", tc.description, got, tc.want)
		}
	}
}

func TestDeterministicUUIDIsStable(t *testing.T) {
	p := geometryPoint(-122.5, 45.5)
	a := deterministicUUID("oregon", p)
	b := deterministicUUID("oregon", p)
	if a != b {
		t.Fatalf("deterministicUUID is not stable: %s != %s", a, b)
	}

	c := deterministicUUID("washington", p)
	if a == c {
		t.Fatalf("deterministicUUID ignored source id")
	}
}

func TestUUIDToFeatureIDDeterministic(t *testing.T) {
	u := deterministicUUID("oregon", geometryPoint(-122.5, 45.5))
	if uuidToFeatureID(u) != uuidToFeatureID(u) {
		t.Fatalf("uuidToFeatureID is not deterministic")
	}
}

func TestGeometryBoundAndLength(t *testing.T) {
	g := buildGeometry([][][]float64{
		{{-122.0, 45.0}, {-122.0, 46.0}},
	})
	bound, ok := geometryBound(g)
	if !ok {
		t.Fatalf("expected a bound")
	}
	if bound.Min[1] != 45.0 || bound.Max[1] != 46.0 {
		t.Fatalf("bound = %+v, want lat range [45,46]", bound)
	}
	if length := geometryLength(g); length < 100000 || length > 120000 {
		t.Fatalf("length = %v, want ~111km", length)
	}
}

func TestParseKMLExtractsFolders(t *testing.T) {
	kmlPath := writeTempKML(t, sampleKML)
	placemarks, err := ParseKML(context.Background(), kmlPath, "test-source")
	if err != nil {
		t.Fatalf("ParseKML: %v", err)
	}
	if len(placemarks) != 2 {
		t.Fatalf("got %d placemarks, want 2", len(placemarks))
	}
	if placemarks[0].Name != "Mulholland Drive" {
		t.Errorf("placemarks[0].Name = %q, want Mulholland Drive", placemarks[0].Name)
	}
	if placemarks[0].Curvature == nil || *placemarks[0].Curvature != "1100" {
		t.Errorf("placemarks[0].Curvature = %v, want 1100", placemarks[0].Curvature)
	}
	if placemarks[0].FeatureID == 0 {
		t.Errorf("placemarks[0].FeatureID is zero")
	}
}
