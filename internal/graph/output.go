package graph

import (
	"github.com/paulmach/orb/geojson"

	"github.com/MeKo-Tech/underpass/internal/types"
)

// NodeOutput is the value carried along a graph connection: either a
// preprocessed OQL query string (from the query-building half of the
// graph) or a GeoJSON feature collection (from the geometry half).
type NodeOutput struct {
	query    *string
	features *geojson.FeatureCollection
}

// QueryOutput wraps a query string as a NodeOutput.
func QueryOutput(q string) NodeOutput {
	return NodeOutput{query: &q}
}

// FeaturesOutput wraps a feature collection as a NodeOutput.
func FeaturesOutput(fc *geojson.FeatureCollection) NodeOutput {
	return NodeOutput{features: fc}
}

// IntoQuery unwraps a query output, or returns WrongInputType if this
// NodeOutput actually carries a feature collection.
func (o NodeOutput) IntoQuery() (string, error) {
	if o.query == nil {
		return "", WrongInputType{Got: "geojson", Expected: "query"}
	}
	return *o.query, nil
}

// IntoFeatures unwraps a features output, or returns WrongInputType if
// this NodeOutput actually carries a query string.
func (o NodeOutput) IntoFeatures() (*geojson.FeatureCollection, error) {
	if o.features == nil {
		return nil, WrongInputType{Got: "query", Expected: "geojson"}
	}
	return o.features, nil
}

// Result is the top-level output of evaluating a graph: the resolved
// feature collection, every geocoded area that was resolved along the
// way, and the preprocessed query text each Overpass node sent, keyed
// by that node's id (for diagnostics).
type Result struct {
	Collection       *geojson.FeatureCollection `json:"collection"`
	GeocodeAreas     []types.GeocodedArea       `json:"geocode_areas"`
	ProcessedQueries map[string]string          `json:"processed_queries"`
}

// NewResult returns an empty Result, the zero value returned when the
// sink node has no inputs wired to it at all.
func NewResult() *Result {
	return &Result{
		Collection:       geojson.NewFeatureCollection(),
		GeocodeAreas:     []types.GeocodedArea{},
		ProcessedQueries: map[string]string{},
	}
}
