package geo

import (
	"math"

	"github.com/twpayne/go-geom"
)

// KmPerDegree is the length of one degree of latitude. Longitude degrees are
// scaled by cos(latitude). All physical areas and distances in this package use
// this flat equirectangular approximation; it is not geodesically exact and is
// only meant for event-scale (tens of kilometres) footprints.
const KmPerDegree = 111.32

// Metric converts degree offsets near a reference latitude into kilometres.
type Metric struct {
	KmPerDegLon float64
	KmPerDegLat float64
}

// MetricAt returns the equirectangular metric for the given latitude.
func MetricAt(lat float64) Metric {
	return Metric{
		KmPerDegLon: KmPerDegree * math.Cos(lat*math.Pi/180),
		KmPerDegLat: KmPerDegree,
	}
}

// DistanceKm returns the planar distance between a and b in kilometres.
func (m Metric) DistanceKm(a, b geom.Coord) float64 {
	return math.Hypot((b[0]-a[0])*m.KmPerDegLon, (b[1]-a[1])*m.KmPerDegLat)
}

// AreaKm2 converts a planar area in square degrees to square kilometres.
func (m Metric) AreaKm2(deg2 float64) float64 {
	return deg2 * m.KmPerDegLon * m.KmPerDegLat
}

// KmToDegrees converts kilometres to degrees of latitude.
func KmToDegrees(km float64) float64 {
	return km / KmPerDegree
}
