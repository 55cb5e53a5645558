package retrieval

// TokenGroup is a set of synonym tokens; a feature matches the group if
// its indexed token set contains any member. Tokens are assumed already
// normalized by the caller (tokenization and normalization are an
// external collaborator, out of scope here).
type TokenGroup []string

// QueryParams is the fully-resolved, ordered query the address and
// geometry matchers run against.
type QueryParams struct {
	Tokens    []TokenGroup
	Languages []string
	ScaleHint float64
}
