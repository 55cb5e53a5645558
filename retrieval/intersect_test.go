package retrieval

import (
	"slices"
	"testing"
)

func TestIntersectSorted(t *testing.T) {
	cases := []struct {
		name string
		a, b []FeatureID
		want []FeatureID
	}{
		{"both empty", nil, nil, []FeatureID{}},
		{"one empty", []FeatureID{1, 2, 3}, nil, []FeatureID{}},
		{"disjoint", []FeatureID{1, 3, 5}, []FeatureID{2, 4, 6}, []FeatureID{}},
		{"full overlap", []FeatureID{1, 2, 3}, []FeatureID{1, 2, 3}, []FeatureID{1, 2, 3}},
		{"partial, interleaved", []FeatureID{1, 2, 4, 7, 9}, []FeatureID{2, 3, 4, 8, 9}, []FeatureID{2, 4, 9}},
		{"a longer", []FeatureID{1, 2, 3, 4, 5}, []FeatureID{5}, []FeatureID{5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := intersectSorted(tc.a, tc.b)
			if !slices.Equal(got, tc.want) {
				t.Fatalf("intersectSorted(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestIntersectSortedNeverAliasesInputs(t *testing.T) {
	a := []FeatureID{1, 2, 3}
	b := []FeatureID{2, 3, 4}
	got := intersectSorted(a, b)
	got[0] = 99
	if a[1] == 99 || b[0] == 99 {
		t.Fatalf("intersectSorted result aliases an input slice")
	}
}
