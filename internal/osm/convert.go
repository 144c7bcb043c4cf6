package osm

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ToGeoJSON converts a decoded Overpass document into a feature
// collection. Areas never produce a feature. Unresolved way→node
// references are silently dropped rather than erroring, matching how
// Overpass itself can return partial ways when a bbox clips them.
func ToGeoJSON(doc Document) *geojson.FeatureCollection {
	nodeMap := make(map[uint64]orb.Point, len(doc.Elements))
	wayMap := make(map[uint64]uint64)

	for _, el := range doc.Elements {
		if el.Type == ElementNode {
			nodeMap[el.ID] = orb.Point{el.Lon, el.Lat}
		}
	}
	for _, el := range doc.Elements {
		if el.Type == ElementWay {
			for _, n := range el.Nodes {
				wayMap[n] = el.ID
			}
		}
	}

	fc := geojson.NewFeatureCollection()
	for _, el := range doc.Elements {
		if f := elementToFeature(el, nodeMap, wayMap); f != nil {
			fc.Append(f)
		}
	}
	return fc
}

func elementToFeature(el Element, nodeMap map[uint64]orb.Point, wayMap map[uint64]uint64) *geojson.Feature {
	geom := elementToGeometry(el, nodeMap)
	if geom == nil {
		return nil
	}

	f := geojson.NewFeature(geom)
	f.ID = float64(el.ID)

	props := geojson.Properties{}
	for k, v := range el.Tags {
		props[k] = v
	}
	props["osm_id"] = el.ID
	props["osm_type"] = string(el.Type)

	switch el.Type {
	case ElementWay:
		props["__children_ids"] = el.Nodes
	case ElementNode:
		if wayID, ok := wayMap[el.ID]; ok {
			props["__way_id"] = wayID
		}
	}

	f.Properties = props
	return f
}

func elementToGeometry(el Element, nodeMap map[uint64]orb.Point) orb.Geometry {
	switch el.Type {
	case ElementNode:
		return orb.Point{el.Lon, el.Lat}
	case ElementWay:
		ls := make(orb.LineString, 0, len(el.Nodes))
		for _, id := range el.Nodes {
			if p, ok := nodeMap[id]; ok {
				ls = append(ls, p)
			}
		}
		return ls
	case ElementRelation:
		var gc orb.Collection
		for _, member := range el.Members {
			if g := elementToGeometry(member, nodeMap); g != nil {
				gc = append(gc, g)
			}
		}
		return gc
	default: // area
		return nil
	}
}
