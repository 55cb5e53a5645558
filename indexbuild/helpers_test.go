package indexbuild

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
)

func geometryPoint(lng, lat float64) orb.Point {
	return orb.Point{lng, lat}
}

func writeTempKML(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.kml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing temp KML: %v", err)
	}
	return path
}

const sampleKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
  <Document>
    <Folder>
      <name>Mulholland Drive</name>
      <description>Twisty canyon road c_1100</description>
      <Placemark>
        <LineString>
          <coordinates>-118.41,34.13,0 -118.42,34.14,0 -118.43,34.15,0</coordinates>
        </LineString>
      </Placemark>
    </Folder>
    <Folder>
      <name>Angeles Crest Highway</name>
      <description>curvature: 900</description>
      <Placemark>
        <LineString>
          <coordinates>-118.10,34.20,0 -118.15,34.25,0</coordinates>
        </LineString>
      </Placemark>
      <Placemark>
        <LineString>
          <coordinates>-118.15,34.25,0 -118.20,34.30,0</coordinates>
        </LineString>
      </Placemark>
    </Folder>
  </Document>
</kml>
`
