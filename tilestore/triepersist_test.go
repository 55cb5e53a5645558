package tilestore

import (
	"testing"

	"github.com/mumuon/drivefinder/geofts/retrieval"
)

func TestTrieSnapshotRoundTrip(t *testing.T) {
	want := []Feature{
		{Leaf: 1, Tokens: []string{"mulholland", "drive"}},
		{Leaf: 2, Tokens: []string{"angeles", "crest", "highway"}},
		{Leaf: 3, Tokens: nil},
	}

	data := EncodeTrieSnapshot(want)
	got, err := decodeTrieSnapshot(data)
	if err != nil {
		t.Fatalf("decodeTrieSnapshot: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d features, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Leaf != want[i].Leaf {
			t.Fatalf("feature %d: leaf = %d, want %d", i, got[i].Leaf, want[i].Leaf)
		}
		if len(got[i].Tokens) != len(want[i].Tokens) {
			t.Fatalf("feature %d: tokens = %v, want %v", i, got[i].Tokens, want[i].Tokens)
		}
		for j := range want[i].Tokens {
			if got[i].Tokens[j] != want[i].Tokens[j] {
				t.Fatalf("feature %d token %d: got %q, want %q", i, j, got[i].Tokens[j], want[i].Tokens[j])
			}
		}
	}
}

func TestDecodeTrieSnapshotEmpty(t *testing.T) {
	got, err := decodeTrieSnapshot(nil)
	if err != nil {
		t.Fatalf("decodeTrieSnapshot(nil): %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected zero features, got %d", len(got))
	}
}

func TestMatcherMatch(t *testing.T) {
	root := []Feature{
		{Leaf: 10, Tokens: []string{"mulholland", "drive"}},
		{Leaf: 20, Tokens: []string{"mulholland", "highway"}},
		{Leaf: 30, Tokens: []string{"sepulveda", "boulevard"}},
	}

	params := retrieval.QueryParams{
		Tokens: []retrieval.TokenGroup{{"mulholland"}, {"drive", "highway"}},
	}

	var matched []retrieval.LeafValue
	allPass := func(retrieval.LeafValue) bool { return true }
	collect := func(v retrieval.LeafValue) { matched = append(matched, v) }

	if err := (Matcher{}).Match(params, root, allPass, collect); err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(matched) != 2 {
		t.Fatalf("expected 2 matches, got %d: %v", len(matched), matched)
	}
}

func TestMatcherRejectsWrongRootType(t *testing.T) {
	err := (Matcher{}).Match(retrieval.QueryParams{}, "not a feature slice", func(retrieval.LeafValue) bool { return true }, func(retrieval.LeafValue) {})
	if err == nil {
		t.Fatalf("expected an error for a mistyped trie root")
	}
}
