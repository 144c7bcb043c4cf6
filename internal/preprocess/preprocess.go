// Package preprocess expands the macro language embedded in raw
// Overpass-QL query fragments before they are sent to the Overpass
// endpoint.
package preprocess

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/MeKo-Tech/underpass/internal/types"
)

// Geocoder resolves a free-text place description to stable OSM area
// ids and a GeocodedArea record. Implemented by internal/geocode.
type Geocoder interface {
	Search(ctx context.Context, query, lang string) (ids []uint64, area types.GeocodedArea, err error)
}

var macroRE = regexp.MustCompile(`\{\{\s*([\w.]+)(:([\s\S]+?))?\}\}`)

// IDGenerator produces the fresh identifiers aroundSelf expansion
// needs. Overridden in tests for deterministic snapshots.
type IDGenerator func(label string) string

// RandomSuffixID is the production IDGenerator: ten random
// alphanumeric characters per identifier.
func RandomSuffixID(label string) string {
	return fmt.Sprintf("internal__%s_%s", label, randomAlphanumeric(10))
}

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func randomAlphanumeric(n int) string {
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphanumeric))))
		if err != nil {
			// crypto/rand failure is unrecoverable; fall back to a fixed
			// character rather than panicking mid-query-build.
			b[i] = 'A'
			continue
		}
		b[i] = alphanumeric[idx.Int64()]
	}
	return string(b)
}

// Expand runs the macro preprocessor over query, returning the framed,
// fully-expanded Overpass-QL text plus every geocoded area resolved
// along the way (in the order macros were encountered, left to right).
//
// The unconditional header/footer framing and the absence of an
// `{{out}}` shortcut are deliberate: callers supply a bare body, not a
// fully-framed query.
func Expand(ctx context.Context, query string, bbox types.Bbox, timeout uint32, geocoder Geocoder, gen IDGenerator) (string, []types.GeocodedArea, error) {
	if gen == nil {
		gen = RandomSuffixID
	}

	var areas []types.GeocodedArea
	var out strings.Builder
	last := 0

	matches := macroRE.FindAllStringSubmatchIndex(query, -1)
	for _, m := range matches {
		out.WriteString(query[last:m[0]])

		name := query[m[2]:m[3]]
		var body string
		if m[6] >= 0 {
			body = query[m[6]:m[7]]
		}

		replacement, newAreas, err := expandMacro(ctx, name, body, bbox, geocoder, gen)
		if err != nil {
			return "", nil, err
		}
		areas = append(areas, newAreas...)
		out.WriteString(replacement)

		last = m[1]
	}
	out.WriteString(query[last:])

	framed := fmt.Sprintf("[out:json][timeout:%d];\n\n%s\n\nout;>;out skel qt;", timeout, out.String())
	return framed, areas, nil
}

func expandMacro(ctx context.Context, name, body string, bbox types.Bbox, geocoder Geocoder, gen IDGenerator) (string, []types.GeocodedArea, error) {
	switch {
	case name == "bbox":
		return bbox.String(), nil, nil

	case name == "center":
		lat, lng := bbox.Center()
		return fmt.Sprintf("%s,%s", trimFloat(lat), trimFloat(lng)), nil, nil

	case name == "geocodeArea":
		return expandGeocodeArea(ctx, body, geocoder)

	case strings.HasPrefix(name, "aroundSelf."):
		set := strings.TrimPrefix(name, "aroundSelf.")
		return expandAroundSelf(set, body, gen), nil, nil

	default:
		return "{{" + name + func() string {
			if body != "" {
				return ":" + body
			}
			return ""
		}() + "}}", nil, nil
	}
}

func expandGeocodeArea(ctx context.Context, body string, geocoder Geocoder) (string, []types.GeocodedArea, error) {
	var areas []types.GeocodedArea
	var r strings.Builder
	r.WriteByte('(')

	for _, s := range strings.Split(body, ";") {
		s = strings.TrimSpace(s)
		query, lang := s, "en"
		if idx := strings.LastIndex(s, "@"); idx >= 0 {
			query, lang = strings.TrimSpace(s[:idx]), strings.TrimSpace(s[idx+1:])
		}

		ids, area, err := geocoder.Search(ctx, query, lang)
		if err != nil {
			return "", nil, err
		}

		idStrs := make([]string, len(ids))
		for i, id := range ids {
			idStrs[i] = fmt.Sprintf("%d", id)
		}
		r.WriteString(fmt.Sprintf("area(id:%s);", strings.Join(idStrs, ",")))
		areas = append(areas, area)
	}
	r.WriteByte(')')
	return r.String(), areas, nil
}

func expandAroundSelf(set, distance string, gen IDGenerator) string {
	it := gen("it")
	nearby := gen("nearby")
	others := gen("others")
	empty := gen("empty")
	collect := gen("collect")

	return fmt.Sprintf(
		"foreach.%s->.%s(\n  nwr.%s(around.%s:%s)->.%s;\n  (.%s; - .%s;)->.%s;\n  (.%s; .%s;)->.%s;\n);\n.%s->._;\n.%s",
		set, it,
		set, it, distance, nearby,
		nearby, it, others,
		collect, others, collect,
		empty,
		collect,
	)
}

func trimFloat(f float32) string {
	return fmt.Sprintf("%g", f)
}
