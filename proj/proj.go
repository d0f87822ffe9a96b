package proj

import (
	"math"

	osm "github.com/omniscale/go-osm"
	"github.com/paulmach/orb"
)

// EarthRadius is the WGS84 semi-major axis in meters.
const EarthRadius = 6378137.0

// Origin is the reference point of a document. All projected coordinates
// are relative to it.
type Origin struct {
	Lat    float64
	Long   float64
	LatRad float64
}

func NewOrigin(lat, long float64) Origin {
	return Origin{Lat: lat, Long: long, LatRad: lat * math.Pi / 180.0}
}

// Project maps lat/long (degrees) to planar x/y in meters.
//
// x approaches ±Inf for points 90° of longitude away from the origin.
func (o Origin) Project(lat, long float64) (x, y float64) {
	lat = lat * math.Pi / 180.0
	dlong := (long - o.Long) * math.Pi / 180.0
	b := math.Sin(dlong) * math.Cos(lat)
	x = 0.5 * EarthRadius * math.Log((1+b)/(1-b))
	y = EarthRadius * (math.Atan(math.Tan(lat)/math.Cos(dlong)) - o.LatRad)
	return x, y
}

// FromGeo projects lat/long relative to originLat/originLong.
func FromGeo(originLat, originLong, lat, long float64) (x, y float64) {
	return NewOrigin(originLat, originLong).Project(lat, long)
}

func (o Origin) ProjectNodes(nodes []osm.Node) orb.LineString {
	ls := make(orb.LineString, len(nodes))
	for i, nd := range nodes {
		ls[i][0], ls[i][1] = o.Project(nd.Lat, nd.Long)
	}
	return ls
}
