package geometry

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
)

// ErrNegativeBound is returned by RoadLengthFilter when min or max is
// negative.
var ErrNegativeBound = errors.New("min and max have to be positive values")

// RoadLengthFilter groups each LineString's coordinate stream into
// maximal runs that stay within tolerance degrees of the run's base
// bearing (the bearing from the run's first point), then keeps runs
// whose first-to-last geodesic distance falls strictly between min and
// max.
func RoadLengthFilter(fc *geojson.FeatureCollection, min, max, tolerance float64) (*geojson.FeatureCollection, error) {
	if min > max {
		return nil, ErrMinGreaterThanMax
	}
	if min < 0 || max < 0 {
		return nil, ErrNegativeBound
	}

	out := geojson.NewFeatureCollection()
	for _, f := range lineStringsOf(fc) {
		coords := f.Geometry.(orb.LineString)
		for _, run := range bearingRuns(coords, tolerance) {
			if len(run) < 2 {
				continue
			}
			distance := geo.Distance(run[0], run[len(run)-1])
			if min < distance && distance < max {
				out.Append(segmentFeature(f, run, roadLengthIDOffset))
			}
		}
	}
	return out, nil
}

// bearingRuns splits a coordinate stream into maximal runs whose
// bearing from the run's first point stays within tolerance degrees of
// the run's base bearing (the bearing of its first segment). Runs
// overlap by one point so the grouped geometry stays contiguous.
func bearingRuns(coords orb.LineString, tolerance float64) []orb.LineString {
	if len(coords) < 2 {
		return nil
	}

	var runs []orb.LineString
	runStart := 0
	base := bearing(coords[0], coords[1])

	for i := 1; i < len(coords); i++ {
		b := bearing(coords[runStart], coords[i])
		if bearingDistance(b, base) > tolerance {
			runs = append(runs, append(orb.LineString{}, coords[runStart:i]...))
			runStart = i - 1
			if i < len(coords) {
				base = bearing(coords[runStart], coords[i])
			}
		}
	}
	runs = append(runs, append(orb.LineString{}, coords[runStart:]...))

	return runs
}
