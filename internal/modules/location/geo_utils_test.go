package location

import (
	"math"
	"testing"

	"lifelink/internal/types"
)

func TestDistanceKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		lat1      float64
		lng1      float64
		lat2      float64
		lng2      float64
		wantKm    float64
		tolerance float64
	}{
		{
			name: "same point",
			lat1: 37.7749, lng1: -122.4194,
			lat2: 37.7749, lng2: -122.4194,
			wantKm:    0,
			tolerance: 0,
		},
		{
			name: "SF downtown to City General (~1km)",
			lat1: 37.7749, lng1: -122.4194,
			lat2: 37.7833, lng2: -122.4167,
			wantKm:    1.0,
			tolerance: 0.1,
		},
		{
			name: "New York to Los Angeles (~3944km)",
			lat1: 40.7128, lng1: -74.0060,
			lat2: 34.0522, lng2: -118.2437,
			wantKm:    3944,
			tolerance: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("DistanceKm() = %f, want %f (±%f)", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestDistanceKm_RoundedToOneDecimal(t *testing.T) {
	got := DistanceKm(40.7128, -74.0060, 34.0522, -118.2437)
	if got*10 != math.Trunc(got*10) {
		t.Errorf("expected one decimal place, got %v", got)
	}
}

func TestDistanceKm_Symmetry(t *testing.T) {
	pairs := [][4]float64{
		{25.0, 121.0, 26.0, 122.0},
		{-33.8688, 151.2093, 51.5074, -0.1278},
		{37.7749, -122.4194, 37.8044, -122.2712},
		{0, 0, 0, 179.9},
	}
	for _, p := range pairs {
		d1 := DistanceKm(p[0], p[1], p[2], p[3])
		d2 := DistanceKm(p[2], p[3], p[0], p[1])
		if d1 != d2 {
			t.Errorf("not symmetric for %v: %f vs %f", p, d1, d2)
		}
		if self := DistanceKm(p[0], p[1], p[0], p[1]); self != 0 {
			t.Errorf("distance to self = %f, want 0", self)
		}
	}
}

func TestDistanceKm_NaNPropagates(t *testing.T) {
	if got := DistanceKm(math.NaN(), 0, 1, 1); !math.IsNaN(got) {
		t.Errorf("expected NaN, got %f", got)
	}
}

func TestValidPoint(t *testing.T) {
	cases := []struct {
		p       types.Point
		wantErr bool
	}{
		{types.Point{Lat: 37.77, Lng: -122.41}, false},
		{types.Point{Lat: 90, Lng: 180}, false},
		{types.Point{Lat: 90.1, Lng: 0}, true},
		{types.Point{Lat: 0, Lng: -180.5}, true},
		{types.Point{Lat: math.NaN(), Lng: 0}, true},
		{types.Point{Lat: 0, Lng: math.Inf(1)}, true},
	}
	for _, tc := range cases {
		err := ValidPoint(tc.p)
		if (err != nil) != tc.wantErr {
			t.Errorf("ValidPoint(%v) err = %v, wantErr %v", tc.p, err, tc.wantErr)
		}
	}
}

type distanced struct {
	id   string
	dist float64
}

func TestSortByDistance(t *testing.T) {
	items := []distanced{{"c", 5.0}, {"a", 1.0}, {"b", 3.0}, {"a2", 1.0}}

	SortByDistance(items, func(d distanced) float64 { return d.dist })

	want := []string{"a", "a2", "b", "c"}
	for i, w := range want {
		if items[i].id != w {
			t.Fatalf("unexpected sort order: %v", items)
		}
	}
}

func TestSortByDistance_EmptyAndSingle(t *testing.T) {
	var empty []distanced
	SortByDistance(empty, func(d distanced) float64 { return d.dist })

	single := []distanced{{"a", 2.0}}
	SortByDistance(single, func(d distanced) float64 { return d.dist })
	if single[0].id != "a" {
		t.Errorf("single element sort failed")
	}
}
