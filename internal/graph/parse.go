package graph

import (
	"encoding/json"
	"fmt"
)

var knownKinds = map[string]struct{}{
	string(KindMap):              {},
	string(KindOqlCode):          {},
	string(KindOqlStatement):     {},
	string(KindOqlUnion):         {},
	string(KindOqlDifference):    {},
	string(KindOverpass):         {},
	string(KindRoadAngleFilter):  {},
	string(KindRoadLengthFilter): {},
	string(KindElevationFilter):  {},
	string(KindUnion):            {},
	string(KindInViewOf):         {},
}

// Parse decodes raw client JSON into a Graph, rejecting unknown node
// kinds up front rather than letting them fail obscurely during
// evaluation.
func Parse(data []byte) (*Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, DecodeError{Cause: err}
	}

	for _, n := range g.Nodes {
		if _, ok := knownKinds[n.Label]; !ok {
			return nil, DecodeError{Cause: fmt.Errorf("unknown node kind %q", n.Label)}
		}
	}

	return &g, nil
}
