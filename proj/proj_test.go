package proj

import (
	"math"
	"testing"

	osm "github.com/omniscale/go-osm"
)

func TestOriginMapsToZero(t *testing.T) {
	for _, o := range [][2]float64{{0, 0}, {53, 8}, {-33.9, 151.2}, {89.5, -179}} {
		x, y := FromGeo(o[0], o[1], o[0], o[1])
		if math.Abs(x) > 1e-9 || math.Abs(y) > 1e-6 {
			t.Fatalf("origin %v projected to %v %v", o, x, y)
		}
	}
}

func TestProjectSmallOffsets(t *testing.T) {
	origin := NewOrigin(53.0, 8.0)
	dLat, dLong := 0.001, 0.001

	x, y := origin.Project(53.0+dLat, 8.0)
	wantY := EarthRadius * dLat * math.Pi / 180
	if math.Abs(x) > 1e-6 || math.Abs(y-wantY) > 0.01 {
		t.Fatalf("north offset: %v %v, want 0 %v", x, y, wantY)
	}

	x, y = origin.Project(53.0, 8.0+dLong)
	wantX := EarthRadius * dLong * math.Pi / 180 * math.Cos(53.0*math.Pi/180)
	if math.Abs(x-wantX) > 0.01 || math.Abs(y) > 0.01 {
		t.Fatalf("east offset: %v %v, want %v 0", x, y, wantX)
	}
}

func TestProjectSingularity(t *testing.T) {
	x, _ := FromGeo(0, 0, 0, 90)
	if !math.IsInf(x, 1) && !math.IsNaN(x) && x < 1e8 {
		t.Fatalf("expected diverging x at 90° offset, got %v", x)
	}
}

func TestProjectNodes(t *testing.T) {
	origin := NewOrigin(53.0, 8.0)
	nodes := []osm.Node{
		{Lat: 53.0, Long: 8.0},
		{Lat: 53.001, Long: 8.0},
	}
	ls := origin.ProjectNodes(nodes)
	if len(ls) != 2 {
		t.Fatal(ls)
	}
	if ls[0][0] != 0 || math.Abs(ls[0][1]) > 1e-6 {
		t.Fatal(ls)
	}
	if ls[1][1] < 100 || ls[1][1] > 120 {
		t.Fatal(ls)
	}
}
