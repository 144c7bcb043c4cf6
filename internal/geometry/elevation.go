package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ElevationLookup returns the integer elevation at (lng,lat), or an
// error if no covering raster tile exists. Implemented by
// internal/elevation.
type ElevationLookup interface {
	Lookup(lng, lat float64) (int64, error)
}

// lookupOr0 treats any lookup failure as elevation 0, matching the
// filter's documented (and explicitly flagged as imperfect) behavior.
func lookupOr0(m ElevationLookup, lng, lat float64) int64 {
	v, err := m.Lookup(lng, lat)
	if err != nil {
		return 0
	}
	return v
}

// ElevationFilter keeps Point features whose elevation falls within
// [min,max], and LineString segments where at least one endpoint's
// elevation does.
func ElevationFilter(fc *geojson.FeatureCollection, min, max int64, m ElevationLookup) (*geojson.FeatureCollection, error) {
	if min > max {
		return nil, ErrMinGreaterThanMax
	}

	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		switch geom := f.Geometry.(type) {
		case orb.Point:
			elev := lookupOr0(m, geom[0], geom[1])
			if min <= elev && elev <= max {
				out.Append(f)
			}
		case orb.LineString:
			for i := 0; i < len(geom)-1; i++ {
				p1, p2 := geom[i], geom[i+1]
				e1 := lookupOr0(m, p1[0], p1[1])
				e2 := lookupOr0(m, p2[0], p2[1])
				if (min <= e1 && e1 <= max) || (min <= e2 && e2 <= max) {
					out.Append(segmentFeature(f, orb.LineString{p1, p2}, elevationIDOffset))
				}
			}
		}
	}
	return out, nil
}
