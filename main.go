package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mumuon/drivefinder/geofts/indexbuild"
	"github.com/mumuon/drivefinder/geofts/registrydb"
	"github.com/mumuon/drivefinder/geofts/tilestore"
)

func main() {
	configPath := flag.String("config", ".env", "Path to config file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	help := flag.Bool("help", false, "Show help message")
	flag.Parse()

	args := flag.Args()
	if *help || len(args) == 0 {
		showHelp()
		os.Exit(0)
	}

	command := args[0]

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	switch command {
	case "ingest":
		cmdIngest(args[1:], configPath)
	case "serve":
		cmdServe(args[1:], configPath)
	case "verify":
		cmdVerify(args[1:], configPath)
	default:
		slog.Error("unknown command", "command", command)
		showHelp()
		os.Exit(1)
	}
}

// openRegistry connects to Postgres and the section store the way every
// subcommand needs it: a fetcher backed by local disk when no S3
// credentials are configured, falling back to caching remote fetches
// otherwise.
func openRegistry(cfg *Config) (*registrydb.Store, tilestore.Fetcher, error) {
	var fetcher tilestore.Fetcher
	if cfg.S3.AccessKeyID != "" {
		s3Client, err := NewS3Client(cfg.S3)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize S3 client: %w", err)
		}
		fetcher = &tilestore.CachingFetcher{CacheDir: cfg.Retrieval.TileCacheDir, Remote: s3Client}
	} else {
		fetcher = &tilestore.LocalFetcher{RootDir: cfg.Retrieval.TileCacheDir}
	}

	registryCfg := registrydb.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	}
	store, err := registrydb.Open(registryCfg, fetcher)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open registry: %w", err)
	}
	return store, fetcher, nil
}

// cmdIngest runs the indexbuild pipeline for one or more sources.
func cmdIngest(args []string, configPath *string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	dataDir := fs.String("data-dir", "./source-data", "directory containing <source>.kmz archives")
	tilesDir := fs.String("tiles-dir", "./tiles", "directory to write generated tile pyramids into")
	minZoom := fs.Int("min-zoom", 5, "minimum tippecanoe zoom level")
	maxZoom := fs.Int("max-zoom", 16, "maximum tippecanoe zoom level")
	remotePrefix := fs.String("remote-prefix", "", "object-store key prefix to publish sections under (local-only if empty)")
	fs.Parse(args)

	sources := fs.Args()
	if len(sources) == 0 {
		slog.Error("ingest requires one or more source ids")
		os.Exit(1)
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store, _, err := openRegistry(cfg)
	if err != nil {
		slog.Error("failed to open registry", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var uploader indexbuild.Uploader
	if *remotePrefix != "" {
		s3Client, err := NewS3Client(cfg.S3)
		if err != nil {
			slog.Error("failed to initialize S3 client", "error", err)
			os.Exit(1)
		}
		uploader = s3Client
	}

	pipeline := &indexbuild.Pipeline{
		DataDir:       *dataDir,
		TilesBaseDir:  *tilesDir,
		Zoom:          indexbuild.TileZoomRange{Min: *minZoom, Max: *maxZoom},
		Registry:      store,
		Uploader:      uploader,
		RemoteKeyRoot: *remotePrefix,
	}

	ctx := context.Background()
	total := 0
	for _, source := range sources {
		n, err := pipeline.Ingest(ctx, source)
		if err != nil {
			slog.Error("ingest failed", "source", source, "error", err)
			os.Exit(1)
		}
		slog.Info("source ingested", "source", source, "tiles", n)
		total += n
	}
	slog.Info("ingest complete", "sources", len(sources), "tiles", total)
}

// cmdServe starts the HTTP query API.
func cmdServe(args []string, configPath *string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.Int("port", 8080, "port to listen on")
	fs.Parse(args)

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store, _, err := openRegistry(cfg)
	if err != nil {
		slog.Error("failed to open registry", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	apiServer := NewAPIServer(store, cfg)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := apiServer.Start(*port); err != nil {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		slog.Error("server failed to start", "error", err)
		os.Exit(1)
	case sig := <-sigChan:
		slog.Info("received shutdown signal, stopping server", "signal", sig)
		os.Exit(0)
	}
}

// cmdVerify checks registry/index consistency.
func cmdVerify(args []string, configPath *string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	fs.Parse(args)

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store, fetcher, err := openRegistry(cfg)
	if err != nil {
		slog.Error("failed to open registry", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	report, err := VerifyRegistry(context.Background(), store, fetcher)
	if err != nil {
		slog.Error("verify failed", "error", err)
		os.Exit(1)
	}
	report.Print()

	if report.Failed > 0 {
		os.Exit(1)
	}
}

func showHelp() {
	help := `geofts - geo-textual retrieval engine for map tile data

Usage:
  geofts [global options] <command> [command options] [arguments]

Global Options:
  -config string   Path to .env configuration file (default ".env")
  -debug           Enable debug logging
  -help            Show this help message

Commands:
  ingest           Build and publish the index sections for one or more sources
  serve            Start the HTTP query API
  verify           Check registry/index consistency

Ingest Command:
  Usage: geofts ingest [options] <source> [source2] ...

  Arguments:
    <source>            One or more source ids with a matching <source>.kmz
                         archive in -data-dir

  Options:
    -data-dir string      Directory containing <source>.kmz archives (default "./source-data")
    -tiles-dir string     Directory to write generated tile pyramids into (default "./tiles")
    -min-zoom int         Minimum tippecanoe zoom level (default 5)
    -max-zoom int         Maximum tippecanoe zoom level (default 16)
    -remote-prefix string Object-store key prefix to publish sections under (local-only if empty)

Serve Command:
  Usage: geofts serve [options]

  Options:
    -port int        Port to listen on (default 8080)

Verify Command:
  Usage: geofts verify

  Checks every registry row's scale range against its own zoom and
  confirms every declared trie/spatial section is readable.
`
	fmt.Print(help)
}
