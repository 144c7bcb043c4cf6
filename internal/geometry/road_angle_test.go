package geometry

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/require"
)

func lineFeature(id float64, coords orb.LineString) *geojson.Feature {
	f := geojson.NewFeature(coords)
	f.ID = id
	f.Properties = geojson.Properties{"highway": "residential"}
	return f
}

func TestRoadAngleFilterFullRangeKeepsEverySegment(t *testing.T) {
	// Diagonal segments whose bearings land strictly inside (-90,90),
	// away from the exact due-east/due-west boundary the filter's
	// strict inequality excludes.
	fc := geojson.NewFeatureCollection()
	fc.Append(lineFeature(1, orb.LineString{{0, 0}, {1, 1}, {2, 0}}))

	out, err := RoadAngleFilter(fc, -90, 90)
	require.NoError(t, err)
	require.Len(t, out.Features, 2, "a 3-point LineString has 2 consecutive segments")
}

func TestRoadAngleFilterRejectsMinGreaterThanMax(t *testing.T) {
	_, err := RoadAngleFilter(geojson.NewFeatureCollection(), 10, -10)
	require.ErrorIs(t, err, ErrMinGreaterThanMax)
}

func TestRoadAngleFilterIDOffset(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(lineFeature(42, orb.LineString{{0, 0}, {1, 1}}))

	out, err := RoadAngleFilter(fc, -90, 90)
	require.NoError(t, err)
	require.Len(t, out.Features, 1)
	require.Equal(t, float64(42+roadAngleIDOffset), out.Features[0].ID)
}

func TestRoadAngleFilterExcludesNonLineStringFeatures(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{0, 0}))

	out, err := RoadAngleFilter(fc, -90, 90)
	require.NoError(t, err)
	require.Empty(t, out.Features)
}
