package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// GeoRef anchors the local frame (X east, Y up, Z north) to a latitude/longitude origin
// using a flat-earth approximation.
type GeoRef struct {
	OriginLat float64
	OriginLon float64
}

const metersPerDegLat = 111_320.0

func (g GeoRef) metersPerDegLon() float64 {
	return metersPerDegLat * math.Cos(g.OriginLat*math.Pi/180.0)
}

func (g GeoRef) GeoToLocal(lat, lon, alt float64) mgl64.Vec3 {
	dLat := lat - g.OriginLat
	dLon := lon - g.OriginLon
	return mgl64.Vec3{
		dLon * g.metersPerDegLon(), // east
		alt,
		dLat * metersPerDegLat, // north
	}
}

func (g GeoRef) LocalToGeo(p mgl64.Vec3) (lat, lon, alt float64) {
	lat = g.OriginLat + p.Z()/metersPerDegLat
	lon = g.OriginLon + p.X()/g.metersPerDegLon()
	alt = p.Y()
	return
}

// HeadingDeg is the compass heading of a direction: 0 north (+Z), 90 east (+X).
// Vertical and zero vectors report 0.
func HeadingDeg(v mgl64.Vec3) float64 {
	if math.Abs(v.X()) < 1e-9 && math.Abs(v.Z()) < 1e-9 {
		return 0
	}
	deg := math.Atan2(v.X(), v.Z()) * 180.0 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}
