// Package indexbuild turns a directory of KMZ source placemark data into
// the two on-disk artifacts the retrieval engine needs per tile: a
// protobuf trie snapshot (tilestore.Feature) and a .pbf vector tile.
package indexbuild

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// ExtractKMZ extracts sourceID's KMZ archive from dataDir and returns
// the path to its doc.kml. Callers own the returned directory and
// should remove it (CleanupExtraction) once the KML has been read.
func ExtractKMZ(ctx context.Context, sourceID, dataDir string) (string, error) {
	logger := slog.With("source", sourceID, "data_dir", dataDir)
	logger.Debug("extracting KMZ")

	kmzPath := filepath.Join(dataDir, sourceID+".kmz")
	if _, err := os.Stat(kmzPath); err != nil {
		return "", fmt.Errorf("KMZ file not found for source %q in %s", sourceID, dataDir)
	}

	extractDir := filepath.Join(os.TempDir(), fmt.Sprintf("geofts-extract-%s-%d", sourceID, os.Getpid()))
	if err := os.MkdirAll(extractDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create extraction directory: %w", err)
	}

	reader, err := zip.OpenReader(kmzPath)
	if err != nil {
		os.RemoveAll(extractDir)
		return "", fmt.Errorf("failed to open KMZ file: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if err := extractZipFile(file, extractDir); err != nil {
			os.RemoveAll(extractDir)
			return "", fmt.Errorf("failed to extract file %s: %w", file.Name, err)
		}
	}

	kmlPath, err := findKMLFile(extractDir)
	if err != nil {
		os.RemoveAll(extractDir)
		return "", fmt.Errorf("failed to find doc.kml in extracted archive: %w", err)
	}

	logger.Debug("KML file found", "path", kmlPath)
	return kmlPath, nil
}

func extractZipFile(file *zip.File, destDir string) error {
	filePath := filepath.Join(destDir, file.Name)

	if file.FileInfo().IsDir() {
		return os.MkdirAll(filePath, file.Mode())
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return err
	}

	srcFile, err := file.Open()
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, file.Mode())
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}

func findKMLFile(dir string) (string, error) {
	var kmlPath string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && info.Name() == "doc.kml" {
			kmlPath = path
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if kmlPath == "" {
		return "", fmt.Errorf("doc.kml not found in extracted archive")
	}
	return kmlPath, nil
}

// CleanupExtraction removes the extraction directory an ExtractKMZ call
// produced, identified by the doc.kml path it returned.
func CleanupExtraction(kmlPath string) error {
	if kmlPath == "" {
		return nil
	}
	return os.RemoveAll(filepath.Dir(kmlPath))
}
