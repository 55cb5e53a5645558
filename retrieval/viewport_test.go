package retrieval

import "testing"

func TestRectangleScaledAroundCenter(t *testing.T) {
	r := Rectangle{MinX: -1, MinY: -1, MaxX: 3, MaxY: 1} // center (1,0), half-extents (2,1)
	got := r.ScaledAroundCenter(2)
	want := Rectangle{MinX: -3, MinY: -2, MaxX: 5, MaxY: 2}
	if got != want {
		t.Fatalf("ScaledAroundCenter(2) = %+v, want %+v", got, want)
	}
}

func TestRectangleScaledAroundCenterIdentity(t *testing.T) {
	r := Rectangle{MinX: -1, MinY: -1, MaxX: 3, MaxY: 1}
	if got := r.ScaledAroundCenter(1); got != r {
		t.Fatalf("ScaledAroundCenter(1) = %+v, want identity %+v", got, r)
	}
}

func TestRectangleIntersects(t *testing.T) {
	base := Rectangle{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	cases := []struct {
		name string
		o    Rectangle
		want bool
	}{
		{"overlapping", Rectangle{MinX: 5, MinY: 5, MaxX: 15, MaxY: 15}, true},
		{"touching edge", Rectangle{MinX: 10, MinY: 0, MaxX: 20, MaxY: 10}, true},
		{"disjoint", Rectangle{MinX: 11, MinY: 11, MaxX: 20, MaxY: 20}, false},
		{"contained", Rectangle{MinX: 2, MinY: 2, MaxX: 8, MaxY: 8}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := base.Intersects(tc.o); got != tc.want {
				t.Fatalf("Intersects(%+v) = %v, want %v", tc.o, got, tc.want)
			}
			if got := tc.o.Intersects(base); got != tc.want {
				t.Fatalf("Intersects is not symmetric for %+v", tc.o)
			}
		})
	}
}

func TestRectangleContains(t *testing.T) {
	base := Rectangle{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}
	if !base.Contains(base) {
		t.Fatalf("a rectangle must contain itself")
	}
	if !base.Contains(Rectangle{MinX: 1, MinY: 1, MaxX: 9, MaxY: 9}) {
		t.Fatalf("expected base to contain a strict interior rectangle")
	}
	if base.Contains(Rectangle{MinX: -1, MinY: 0, MaxX: 10, MaxY: 10}) {
		t.Fatalf("expected base to not contain a rectangle extending past MinX")
	}
}
