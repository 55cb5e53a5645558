package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mumuon/drivefinder/geofts/registrydb"
	"github.com/mumuon/drivefinder/geofts/retrieval"
	"github.com/mumuon/drivefinder/geofts/tilestore"
)

// APIServer serves retrieval queries over HTTP against a live registry.
type APIServer struct {
	registry *registrydb.Store
	trie     retrieval.TrieMatcher
	covering retrieval.SpatialCoveringProvider
	config   *Config
}

// NewAPIServer wires a registry and the engine's fixed collaborators
// (the trie matcher and spatial covering provider never vary per
// request; only the viewport, tokens, and limits do).
func NewAPIServer(registry *registrydb.Store, config *Config) *APIServer {
	return &APIServer{
		registry: registry,
		trie:     tilestore.Matcher{},
		covering: tilestore.Covering{},
		config:   config,
	}
}

// Start registers routes and blocks serving HTTP.
func (s *APIServer) Start(port int) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/health", s.handleHealth)

	addr := fmt.Sprintf(":%d", port)
	slog.Info("starting API server", "port", port)
	return http.ListenAndServe(addr, mux)
}

// SearchRequest is the JSON body of POST /api/search. Tokens is a list
// of synonym groups, matching retrieval.TokenGroup: a feature must
// contain at least one token from every group.
type SearchRequest struct {
	Tokens           [][]string `json:"tokens"`
	MinX             float64    `json:"minX"`
	MinY             float64    `json:"minY"`
	MaxX             float64    `json:"maxX"`
	MaxY             float64    `json:"maxY"`
	ScaleHint        float64    `json:"scaleHint"`
	MinFeatures      *uint64    `json:"minFeatures,omitempty"`
	MaxViewportScale *float64   `json:"maxViewportScale,omitempty"`
}

// SearchResultLine is one NDJSON line streamed back per finished tile,
// mirroring ResultSink's one-call-per-tile contract directly.
type SearchResultLine struct {
	RequestID  string              `json:"requestId"`
	TileID     string              `json:"tileId"`
	FeatureIDs []retrieval.FeatureID `json:"featureIds"`
}

// handleSearch handles POST /api/search: it runs exactly one
// retrieval.Controller pass synchronously and streams each tile's
// result back as it is produced, rather than buffering the whole
// response.
func (s *APIServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Tokens) == 0 {
		http.Error(w, "tokens is required", http.StatusBadRequest)
		return
	}
	if req.MinX >= req.MaxX || req.MinY >= req.MaxY {
		http.Error(w, "viewport is degenerate", http.StatusBadRequest)
		return
	}

	requestID := uuid.New().String()
	logger := slog.With("request_id", requestID)
	logger.Info("search request", "tokens", req.Tokens)

	params := retrieval.QueryParams{
		Tokens:    make([]retrieval.TokenGroup, len(req.Tokens)),
		ScaleHint: scaleHintOrDefault(req.ScaleHint, s.config),
	}
	for i, group := range req.Tokens {
		params.Tokens[i] = retrieval.TokenGroup(group)
	}

	viewport := retrieval.Rectangle{MinX: req.MinX, MinY: req.MinY, MaxX: req.MaxX, MaxY: req.MaxY}

	limits := retrieval.NewLimits()
	if req.MinFeatures != nil {
		limits.SetMinNumFeatures(*req.MinFeatures)
	} else if s.config.Retrieval.DefaultMinFeatures != nil {
		limits.SetMinNumFeatures(*s.config.Retrieval.DefaultMinFeatures)
	}
	if req.MaxViewportScale != nil {
		limits.SetMaxViewportScale(*req.MaxViewportScale)
	} else if s.config.Retrieval.DefaultMaxScale != nil {
		limits.SetMaxViewportScale(*s.config.Retrieval.DefaultMaxScale)
	}

	index := retrieval.Index{Registry: s.registry, Trie: s.trie, Covering: s.covering}

	controller := retrieval.NewController()
	if err := controller.Init(index, viewport, params, limits); err != nil {
		logger.Error("controller init failed", "error", err)
		http.Error(w, fmt.Sprintf("init failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	flusher, canFlush := w.(http.Flusher)
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	sink := retrieval.SinkFunc(func(tileID string, sortedFeatureIDs []retrieval.FeatureID) {
		line := SearchResultLine{RequestID: requestID, TileID: tileID, FeatureIDs: sortedFeatureIDs}
		if err := enc.Encode(line); err != nil {
			logger.Warn("failed to encode result line", "tile_id", tileID, "error", err)
			return
		}
		bw.Flush()
		if canFlush {
			flusher.Flush()
		}
	})

	if err := controller.Run(sink); err != nil {
		logger.Error("search failed", "error", err)
		return
	}
	bw.Flush()
}

func scaleHintOrDefault(requested float64, cfg *Config) float64 {
	if requested > 0 {
		return requested
	}
	return cfg.Retrieval.DefaultScaleHint
}

// handleHealth handles GET /health.
func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}
