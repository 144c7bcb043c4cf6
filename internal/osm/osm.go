// Package osm decodes Overpass JSON responses and converts them to
// GeoJSON feature collections.
package osm

import "encoding/json"

// Document is the top-level Overpass JSON response. Only Elements is
// consumed by the converter; the rest is decoded for completeness.
type Document struct {
	Version   float32         `json:"version"`
	Generator string          `json:"generator"`
	Osm3S     json.RawMessage `json:"osm3s"`
	Elements  []Element       `json:"elements"`
}

// ElementType discriminates the four Overpass element shapes.
type ElementType string

const (
	ElementNode     ElementType = "node"
	ElementWay      ElementType = "way"
	ElementRelation ElementType = "relation"
	ElementArea     ElementType = "area"
)

// Element is a single entry in an Overpass elements array. Not every
// field is populated for every Type; Nodes/Members are present only on
// ways/relations respectively.
type Element struct {
	Type    ElementType     `json:"type"`
	ID      uint64          `json:"id"`
	Lat     float64         `json:"lat"`
	Lon     float64         `json:"lon"`
	Nodes   []uint64        `json:"nodes,omitempty"`
	Members []Element       `json:"members,omitempty"`
	Tags    map[string]any  `json:"tags,omitempty"`
}
