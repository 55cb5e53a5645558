package tilestore

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/mumuon/drivefinder/geofts/retrieval"
)

// Feature is one entry of a tile's textual-index section: a feature's
// leaf value plus the normalized tokens it is reachable by. Decoding a
// tile's trie snapshot yields a []Feature as the retrieval.TrieRoot;
// indexbuild constructs the same type when writing one.
type Feature struct {
	Leaf   retrieval.LeafValue
	Tokens []string
}

const (
	trieFieldFeature = protowire.Number(1)
	trieFieldLeaf    = protowire.Number(1)
	trieFieldToken   = protowire.Number(2)
)

// EncodeTrieSnapshot serializes a tile's indexed features to the wire
// format read back by decodeTrieSnapshot: a flat sequence of
// length-delimited embedded messages under field 1, byte-for-byte what
// a generated `repeated Feature features = 1;` message would produce.
// Hand-rolling the framing with protowire avoids needing a .proto
// toolchain for a format this small.
func EncodeTrieSnapshot(features []Feature) []byte {
	var out []byte
	for _, f := range features {
		rec := encodeFeatureRecord(f)
		out = protowire.AppendTag(out, trieFieldFeature, protowire.BytesType)
		out = protowire.AppendBytes(out, rec)
	}
	return out
}

func encodeFeatureRecord(f Feature) []byte {
	var rec []byte
	rec = protowire.AppendTag(rec, trieFieldLeaf, protowire.VarintType)
	rec = protowire.AppendVarint(rec, uint64(f.Leaf))
	for _, tok := range f.Tokens {
		rec = protowire.AppendTag(rec, trieFieldToken, protowire.BytesType)
		rec = protowire.AppendString(rec, tok)
	}
	return rec
}

func decodeTrieSnapshot(data []byte) ([]Feature, error) {
	var features []Feature
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("tilestore: malformed trie snapshot: bad tag")
		}
		data = data[n:]
		if num != trieFieldFeature || typ != protowire.BytesType {
			return nil, fmt.Errorf("tilestore: malformed trie snapshot: unexpected field %d", num)
		}
		rec, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, fmt.Errorf("tilestore: malformed trie snapshot: bad record")
		}
		data = data[n:]

		f, err := decodeFeatureRecord(rec)
		if err != nil {
			return nil, err
		}
		features = append(features, f)
	}
	return features, nil
}

func decodeFeatureRecord(data []byte) (Feature, error) {
	var f Feature
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return f, fmt.Errorf("tilestore: malformed trie record: bad tag")
		}
		data = data[n:]

		switch num {
		case trieFieldLeaf:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return f, fmt.Errorf("tilestore: malformed trie record: bad leaf varint")
			}
			f.Leaf = retrieval.LeafValue(v)
			data = data[n:]
		case trieFieldToken:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return f, fmt.Errorf("tilestore: malformed trie record: bad token bytes")
			}
			f.Tokens = append(f.Tokens, string(v))
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return f, fmt.Errorf("tilestore: malformed trie record: bad field %d", num)
			}
			data = data[n:]
		}
	}
	return f, nil
}

// Matcher is the concrete retrieval.TrieMatcher over a decoded
// Feature slice: a feature matches a query if, for every token
// group, at least one of its synonyms appears among the feature's
// indexed tokens.
type Matcher struct{}

func (Matcher) Match(params retrieval.QueryParams, root retrieval.TrieRoot, filter retrieval.Filter, collect retrieval.Collector) error {
	features, ok := root.([]Feature)
	if !ok {
		return fmt.Errorf("tilestore: trie root has unexpected type %T", root)
	}
	for _, f := range features {
		if !matchesAllGroups(f.Tokens, params.Tokens) {
			continue
		}
		if filter(f.Leaf) {
			collect(f.Leaf)
		}
	}
	return nil
}

func matchesAllGroups(tokens []string, groups []retrieval.TokenGroup) bool {
	for _, group := range groups {
		if !anyTokenPresent(tokens, group) {
			return false
		}
	}
	return true
}

func anyTokenPresent(tokens []string, group retrieval.TokenGroup) bool {
	for _, want := range group {
		for _, have := range tokens {
			if have == want {
				return true
			}
		}
	}
	return false
}
