// Package geometry implements the post-Overpass geometric filters:
// road angle, road length (with bearing-tolerance grouping), and
// elevation.
package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
)

const (
	roadAngleIDOffset  = 2_000_000_000_000_000
	roadLengthIDOffset = 1_000_000_000_000_000
	elevationIDOffset  = 2_000_000_000_000_000
)

// bearing returns the geodesic bearing from p1 to p2 normalized to
// (-90, +90], matching the filter's "which way is this segment facing,
// ignoring direction of travel" semantics.
func bearing(p1, p2 orb.Point) float64 {
	b := geo.Bearing(p1, p2)
	if b <= -90 {
		b += 180
	} else if b > 90 {
		b -= 180
	}
	return b
}

// bearingDistance is the shorter arc between two bearings on the
// circle, normalized to [0,180]. Symmetric in its arguments.
func bearingDistance(a, b float64) float64 {
	d := a - b
	if d < 0 {
		d = -d
	}
	for d > 360 {
		d -= 360
	}
	if d > 180 {
		d = 360 - d
	}
	return d
}

// newID offsets a feature's original numeric id for a derived segment
// feature. Returns (0, false) when the source id isn't a non-negative
// integer, in which case the caller should leave the new feature's id
// unset.
func newID(id any, offset int64) (float64, bool) {
	switch v := id.(type) {
	case float64:
		if v < 0 || v != math.Trunc(v) {
			return 0, false
		}
		return v + float64(offset), true
	case int:
		if v < 0 {
			return 0, false
		}
		return float64(v) + float64(offset), true
	default:
		return 0, false
	}
}

func lineStringsOf(fc *geojson.FeatureCollection) []*geojson.Feature {
	out := make([]*geojson.Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry != nil && f.Geometry.GeoJSONType() == "LineString" {
			out = append(out, f)
		}
	}
	return out
}

func segmentFeature(original *geojson.Feature, coords orb.LineString, offset int64) *geojson.Feature {
	f := geojson.NewFeature(coords)
	f.Properties = original.Properties
	if id, ok := newID(original.ID, offset); ok {
		f.ID = id
	}
	return f
}
