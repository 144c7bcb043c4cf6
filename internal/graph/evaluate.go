package graph

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb/geojson"

	"github.com/MeKo-Tech/underpass/internal/geometry"
	"github.com/MeKo-Tech/underpass/internal/osm"
	"github.com/MeKo-Tech/underpass/internal/overpass"
	"github.com/MeKo-Tech/underpass/internal/preprocess"
	"github.com/MeKo-Tech/underpass/internal/types"
)

// Evaluator holds the process-wide collaborators the graph dispatches
// work to: the Overpass client and its coalescing cache, the geocoder
// used by the query preprocessor, and the elevation lookup used by
// ElevationFilter. These are safe to share across concurrent
// evaluations; per-request state lives entirely in nodeProcessor.
type Evaluator struct {
	OverpassClient overpass.Client
	OverpassCache  *overpass.Cache
	Geocoder       preprocess.Geocoder
	ElevationMap   geometry.ElevationLookup

	// IDGenerator overrides the aroundSelf identifier generator, for
	// deterministic test snapshots. Nil uses preprocess.RandomSuffixID.
	IDGenerator preprocess.IDGenerator
}

// Evaluate validates g, locates its sink's predecessor, and recursively
// evaluates the DAG from there, producing the aggregated Result.
func (e *Evaluator) Evaluate(ctx context.Context, g *Graph, bbox types.Bbox) (*Result, error) {
	if err := Validate(g); err != nil {
		return nil, err
	}

	mapNode, err := findMapNode(g)
	if err != nil {
		return nil, err
	}

	var sinkConn *Connection
	for i := range g.Connections {
		if g.Connections[i].Target == mapNode.ID && g.Connections[i].TargetInput == "in" {
			sinkConn = &g.Connections[i]
			break
		}
	}
	if sinkConn == nil {
		return NewResult(), nil // unwired sink: empty result, not an error
	}

	nodes := make(map[string]*Node, len(g.Nodes))
	for i := range g.Nodes {
		nodes[g.Nodes[i].ID] = &g.Nodes[i]
	}

	source, ok := nodes[sinkConn.Source]
	if !ok {
		return nil, ConnectionNodeMissing{}
	}

	np := &nodeProcessor{
		ctx:         ctx,
		eval:        e,
		nodes:       nodes,
		connections: g.Connections,
		bbox:        bbox,
		memo:        make(map[string]NodeOutput),
		result:      NewResult(),
	}

	out, err := np.processNode(source)
	if err != nil {
		return nil, err
	}
	fc, err := out.IntoFeatures()
	if err != nil {
		return nil, err
	}

	np.result.Collection = fc
	return np.result, nil
}

// nodeProcessor carries the per-request state of one evaluation: the
// memo table, and the accumulators for geocoded areas and resolved
// query text. It is exclusively owned by one Evaluate call; no
// locking, since sibling inputs are always evaluated in source order.
type nodeProcessor struct {
	ctx         context.Context
	eval        *Evaluator
	nodes       map[string]*Node
	connections []Connection
	bbox        types.Bbox
	memo        map[string]NodeOutput
	result      *Result
}

func (p *nodeProcessor) findConnection(nodeID, targetInput string) (*Connection, error) {
	for i := range p.connections {
		c := &p.connections[i]
		if c.Target == nodeID && c.TargetInput == targetInput {
			return c, nil
		}
	}
	return nil, InputMissing{NodeID: nodeID}
}

// getInput resolves and evaluates the node connected to node's input
// named "name".
func (p *nodeProcessor) getInput(node *Node, name string) (NodeOutput, error) {
	conn, err := p.findConnection(node.ID, name)
	if err != nil {
		return NodeOutput{}, err
	}
	prev, ok := p.nodes[conn.Source]
	if !ok {
		return NodeOutput{}, ConnectionNodeMissing{}
	}
	return p.processNode(prev)
}

func (p *nodeProcessor) processNode(n *Node) (NodeOutput, error) {
	if out, ok := p.memo[n.ID]; ok {
		return out, nil
	}

	out, err := p.dispatch(n)
	if err != nil {
		return NodeOutput{}, err
	}

	p.memo[n.ID] = out
	return out, nil
}

func (p *nodeProcessor) dispatch(n *Node) (NodeOutput, error) {
	switch NodeKind(n.Label) {
	case KindMap:
		// The evaluator never calls process on the sink; reaching here is
		// a programmer error in graph wiring, not a user-facing failure.
		return NodeOutput{}, fmt.Errorf("map node %s was processed directly", n.ID)

	case KindOqlCode:
		query, _ := getControl[string](*n, "query")
		return QueryOutput(query), nil

	case KindOqlStatement:
		return p.processOqlStatement(n)

	case KindOqlUnion:
		a, b, err := p.twoQueryInputs(n)
		if err != nil {
			return NodeOutput{}, err
		}
		return QueryOutput(fmt.Sprintf("( %s %s );", a, b)), nil

	case KindOqlDifference:
		a, b, err := p.twoQueryInputs(n)
		if err != nil {
			return NodeOutput{}, err
		}
		return QueryOutput(fmt.Sprintf("( %s - %s );", a, b)), nil

	case KindOverpass:
		return p.processOverpass(n)

	case KindRoadAngleFilter:
		return p.processRoadAngleFilter(n)

	case KindRoadLengthFilter:
		return p.processRoadLengthFilter(n)

	case KindElevationFilter:
		return p.processElevationFilter(n)

	case KindUnion:
		return p.processUnion(n)

	case KindInViewOf:
		return p.processInViewOf(n)

	default:
		return NodeOutput{}, fmt.Errorf("unknown node kind %q", n.Label)
	}
}

var errNotImplemented = fmt.Errorf("not implemented")

func (p *nodeProcessor) twoQueryInputs(n *Node) (a, b string, err error) {
	aOut, err := p.getInput(n, "a")
	if err != nil {
		return "", "", err
	}
	a, err = aOut.IntoQuery()
	if err != nil {
		return "", "", err
	}

	bOut, err := p.getInput(n, "b")
	if err != nil {
		return "", "", err
	}
	b, err = bOut.IntoQuery()
	if err != nil {
		return "", "", err
	}
	return a, b, nil
}

func (p *nodeProcessor) processOqlStatement(n *Node) (NodeOutput, error) {
	nodes, _ := getControl[bool](*n, "nodes")
	ways, _ := getControl[bool](*n, "ways")
	relations, _ := getControl[bool](*n, "relations")
	key, _ := getControl[string](*n, "key")
	value, _ := getControl[string](*n, "value")

	prefix := oqlStatementPrefix(nodes, ways, relations)

	if value == "" {
		return QueryOutput(fmt.Sprintf("%s[%s]({{bbox}});", prefix, key)), nil
	}
	return QueryOutput(fmt.Sprintf("%s[%s=%s]({{bbox}});", prefix, key, value)), nil
}

func oqlStatementPrefix(nodes, ways, relations bool) string {
	switch {
	case nodes && ways && relations:
		return "nwr"
	case nodes && ways:
		return "nw"
	case nodes && relations:
		return "nr"
	case ways && relations:
		return "wr"
	case nodes:
		return "node"
	case ways:
		return "way"
	case relations:
		return "relation"
	default:
		return "nwr"
	}
}

func (p *nodeProcessor) processOverpass(n *Node) (NodeOutput, error) {
	queryOut, err := p.getInput(n, "query")
	if err != nil {
		return NodeOutput{}, err
	}
	rawQuery, err := queryOut.IntoQuery()
	if err != nil {
		return NodeOutput{}, err
	}

	timeout, _ := getControl[uint32](*n, "timeout")
	if timeout == 0 {
		timeout = 60
	}

	expanded, areas, err := preprocess.Expand(p.ctx, rawQuery, p.bbox, timeout, p.eval.Geocoder, p.eval.IDGenerator)
	if err != nil {
		return NodeOutput{}, GeocoderError{Message: err.Error()}
	}

	entry, err := p.eval.OverpassCache.GetOrCompute(p.ctx, expanded, p.bbox, func(ctx context.Context) (overpass.Entry, error) {
		body, status, err := p.eval.OverpassClient.Query(ctx, expanded)
		if err != nil {
			return overpass.Entry{}, NetworkError{Cause: err}
		}
		if status != 200 {
			return overpass.Entry{}, OqlSyntaxError{NodeID: n.ID, Err: string(body), Query: expanded}
		}

		var doc osm.Document
		if jsonErr := json.Unmarshal(body, &doc); jsonErr != nil {
			return overpass.Entry{}, OverpassJSONError{Cause: jsonErr}
		}

		return overpass.Entry{
			Collection:   osm.ToGeoJSON(doc),
			GeocodeAreas: areas,
			Query:        expanded,
		}, nil
	})
	if err != nil {
		return NodeOutput{}, err
	}

	p.result.GeocodeAreas = append(p.result.GeocodeAreas, entry.GeocodeAreas...)
	p.result.ProcessedQueries[n.ID] = entry.Query

	return FeaturesOutput(entry.Collection), nil
}

func (p *nodeProcessor) processRoadAngleFilter(n *Node) (NodeOutput, error) {
	in, err := p.getInput(n, "in")
	if err != nil {
		return NodeOutput{}, err
	}
	fc, err := in.IntoFeatures()
	if err != nil {
		return NodeOutput{}, err
	}

	min, _ := getControl[float64](*n, "min")
	max, _ := getControl[float64](*n, "max")

	filtered, err := geometry.RoadAngleFilter(fc, min, max)
	if err != nil {
		return NodeOutput{}, RoadAngleError{Message: err.Error(), NodeID: n.ID}
	}
	return FeaturesOutput(filtered), nil
}

func (p *nodeProcessor) processRoadLengthFilter(n *Node) (NodeOutput, error) {
	in, err := p.getInput(n, "in")
	if err != nil {
		return NodeOutput{}, err
	}
	fc, err := in.IntoFeatures()
	if err != nil {
		return NodeOutput{}, err
	}

	min, _ := getControl[float64](*n, "min")
	max, _ := getControl[float64](*n, "max")
	tolerance, _ := getControl[float64](*n, "tolerance")

	filtered, err := geometry.RoadLengthFilter(fc, min, max, tolerance)
	if err != nil {
		return NodeOutput{}, RoadLengthError{Message: err.Error(), NodeID: n.ID}
	}
	return FeaturesOutput(filtered), nil
}

func (p *nodeProcessor) processElevationFilter(n *Node) (NodeOutput, error) {
	in, err := p.getInput(n, "in")
	if err != nil {
		return NodeOutput{}, err
	}
	fc, err := in.IntoFeatures()
	if err != nil {
		return NodeOutput{}, err
	}

	min, _ := getControl[int64](*n, "min")
	max, _ := getControl[int64](*n, "max")

	filtered, err := geometry.ElevationFilter(fc, min, max, p.eval.ElevationMap)
	if err != nil {
		// reuses the road-angle error shape; the client-side renderer
		// doesn't distinguish the two filters' failures.
		return NodeOutput{}, RoadAngleError{Message: err.Error(), NodeID: n.ID}
	}
	return FeaturesOutput(filtered), nil
}

// processInViewOf resolves and type-checks both inputs (so a malformed
// upstream graph still fails WrongInputType before anything else), then
// reports the reserved node kind as unimplemented.
func (p *nodeProcessor) processInViewOf(n *Node) (NodeOutput, error) {
	inOut, err := p.getInput(n, "in")
	if err != nil {
		return NodeOutput{}, err
	}
	if _, err := inOut.IntoFeatures(); err != nil {
		return NodeOutput{}, err
	}

	auxOut, err := p.getInput(n, "aux")
	if err != nil {
		return NodeOutput{}, err
	}
	if _, err := auxOut.IntoFeatures(); err != nil {
		return NodeOutput{}, err
	}

	return NodeOutput{}, fmt.Errorf("InViewOf node %s: %w", n.ID, errNotImplemented)
}

func (p *nodeProcessor) processUnion(n *Node) (NodeOutput, error) {
	aOut, err := p.getInput(n, "a")
	if err != nil {
		return NodeOutput{}, err
	}
	a, err := aOut.IntoFeatures()
	if err != nil {
		return NodeOutput{}, err
	}

	bOut, err := p.getInput(n, "b")
	if err != nil {
		return NodeOutput{}, err
	}
	b, err := bOut.IntoFeatures()
	if err != nil {
		return NodeOutput{}, err
	}

	merged := geojson.NewFeatureCollection()
	merged.Features = append(merged.Features, a.Features...)
	merged.Features = append(merged.Features, b.Features...)
	return FeaturesOutput(merged), nil
}
