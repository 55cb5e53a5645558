package retrieval

import "errors"

// Error kinds surfaced from Run. TileAdmissionSkipped is deliberately not
// one of these: a missing section or a dead handle at Init time is logged
// and the tile is dropped, never raised.
var (
	ErrTileUnreadable   = errors.New("retrieval: tile section unreadable")
	ErrMalformedIndex   = errors.New("retrieval: malformed index")
	ErrMisconfiguration = errors.New("retrieval: misconfiguration")
)
