package geometry

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrMinGreaterThanMax is returned by RoadAngleFilter, RoadLengthFilter,
// and ElevationFilter when their min control exceeds their max control.
var ErrMinGreaterThanMax = errors.New("the min flag has a greater value than the max flag")

// RoadAngleFilter splits every LineString feature into consecutive
// coordinate pairs and keeps the pairs whose geodesic bearing falls
// strictly between min and max (both in (-90,90], after
// normalization).
func RoadAngleFilter(fc *geojson.FeatureCollection, min, max float64) (*geojson.FeatureCollection, error) {
	if min > max {
		return nil, ErrMinGreaterThanMax
	}

	out := geojson.NewFeatureCollection()
	for _, f := range lineStringsOf(fc) {
		coords := f.Geometry.(orb.LineString)
		if len(coords) < 2 {
			continue
		}
		for i := 0; i < len(coords)-1; i++ {
			p1, p2 := coords[i], coords[i+1]
			b := bearing(p1, p2)
			if b > min && b < max {
				out.Append(segmentFeature(f, orb.LineString{p1, p2}, roadAngleIDOffset))
			}
		}
	}
	return out, nil
}
