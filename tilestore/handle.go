package tilestore

import (
	"context"
	"fmt"

	"github.com/paulmach/orb/maptile"

	"github.com/mumuon/drivefinder/geofts/retrieval"
)

// Row is the tile metadata a TileRegistry hands to NewHandle — the
// subset of a registrydb row a Handle needs to address and open a
// tile's sections, independent of how that row was stored.
type Row struct {
	ID       string
	Tile     maptile.Tile
	Bounds   retrieval.Rectangle
	MinScale float64
	MaxScale float64
	TrieKey  string // object key of the trie snapshot, empty if absent
	PBFKey   string // object key of the vector tile, empty if absent
	Deleted  bool
}

// Handle is the concrete retrieval.TileHandle: a borrowed reference to
// one row's sections, opened lazily through a Fetcher.
type Handle struct {
	row     Row
	fetcher Fetcher
}

func NewHandle(row Row, fetcher Fetcher) *Handle {
	return &Handle{row: row, fetcher: fetcher}
}

func (h *Handle) Alive() bool                  { return !h.row.Deleted }
func (h *Handle) ID() string                   { return h.row.ID }
func (h *Handle) Bounds() retrieval.Rectangle  { return h.row.Bounds }
func (h *Handle) ScaleRange() (float64, float64) { return h.row.MinScale, h.row.MaxScale }
func (h *Handle) HasTextSection() bool         { return h.row.TrieKey != "" }
func (h *Handle) HasSpatialSection() bool      { return h.row.PBFKey != "" }

func (h *Handle) OpenTextIndex() (retrieval.TrieRoot, retrieval.EncodingParams, error) {
	data, err := h.fetcher.Fetch(context.Background(), h.row.TrieKey)
	if err != nil {
		return nil, retrieval.EncodingParams{}, fmt.Errorf("%w: tile %s: %v", retrieval.ErrTileUnreadable, h.row.ID, err)
	}
	features, err := decodeTrieSnapshot(data)
	if err != nil {
		return nil, retrieval.EncodingParams{}, fmt.Errorf("%w: tile %s: %v", retrieval.ErrMalformedIndex, h.row.ID, err)
	}
	return features, retrieval.EncodingParams{Version: 1, Collator: "unicode-casefold"}, nil
}

func (h *Handle) OpenSpatialIndex() (retrieval.ScaleIndexReader, error) {
	data, err := h.fetcher.Fetch(context.Background(), h.row.PBFKey)
	if err != nil {
		return nil, fmt.Errorf("%w: tile %s: %v", retrieval.ErrTileUnreadable, h.row.ID, err)
	}
	reader, err := newMVTScaleIndex(h.row.Tile, data)
	if err != nil {
		return nil, fmt.Errorf("%w: tile %s: %v", retrieval.ErrMalformedIndex, h.row.ID, err)
	}
	return reader, nil
}
