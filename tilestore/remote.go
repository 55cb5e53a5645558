package tilestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mumuon/drivefinder/geofts/retrieval"
)

// Fetcher retrieves the raw bytes of an index section by its storage
// key. Handle never talks to S3 or the filesystem directly; it only
// knows a Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// Downloader is the subset of *main.S3Client a Fetcher needs. Declared
// here, not in the AWS-facing package, so tilestore can be tested
// without an S3 client.
type Downloader interface {
	DownloadObject(ctx context.Context, key string) ([]byte, error)
}

// CachingFetcher serves index sections from a local disk cache,
// falling back to the remote store and populating the cache on miss —
// the same cache-then-fetch shape the teacher's tile pipeline uses
// when copying generated tiles into a parent directory for reuse.
type CachingFetcher struct {
	CacheDir string
	Remote   Downloader
}

func (f *CachingFetcher) Fetch(ctx context.Context, key string) ([]byte, error) {
	path := filepath.Join(f.CacheDir, key)
	if data, err := os.ReadFile(path); err == nil {
		return data, nil
	}

	data, err := f.Remote.DownloadObject(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %s: %v", retrieval.ErrTileUnreadable, key, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err == nil {
		_ = os.WriteFile(path, data, 0644)
	}
	return data, nil
}

// LocalFetcher serves index sections straight from disk, for
// deployments that keep the tile corpus on a shared volume instead of
// object storage.
type LocalFetcher struct {
	RootDir string
}

func (f *LocalFetcher) Fetch(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(f.RootDir, key))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", retrieval.ErrTileUnreadable, key, err)
	}
	return data, nil
}
