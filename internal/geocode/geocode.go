// Package geocode resolves free-text place descriptions to stable OSM
// area identifiers via the Nominatim public API.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/MeKo-Tech/underpass/internal/types"
)

const (
	userAgent   = "underpass, ops@underpass.example"
	defaultBase = "https://nominatim.openstreetmap.org/search"
)

// Client queries Nominatim and munges the returned OSM id the way
// overpass-turbo's shortcuts.ts does, so {{geocodeArea}} can embed the
// ids directly into an `area(id:...)` filter.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New returns a Client using http.DefaultClient against the public
// Nominatim endpoint.
func New() *Client {
	return &Client{httpClient: http.DefaultClient, baseURL: defaultBase}
}

// NewWithClient allows swapping in a custom *http.Client (timeouts,
// transport instrumentation) or a mock endpoint for tests.
func NewWithClient(httpClient *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBase
	}
	return &Client{httpClient: httpClient, baseURL: baseURL}
}

type nominatimResult struct {
	OsmID       json.Number `json:"osm_id"`
	OsmType     string      `json:"osm_type"`
	DisplayName string      `json:"display_name"`
}

// Search queries Nominatim for the given free-text description and
// language hint, taking the first result. Returns the OSM id(s)
// already transformed for embedding in an Overpass area filter:
// relations get +3,600,000,000; ways return both the shifted and raw
// id (backward compatibility with overpass-turbo's shortcut); nodes
// are returned unchanged.
func (c *Client) Search(ctx context.Context, query, lang string) ([]uint64, types.GeocodedArea, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, types.GeocodedArea{}, fmt.Errorf("geocoder request: %w", err)
	}
	q := u.Query()
	q.Set("format", "jsonv2")
	q.Set("accept-language", lang)
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, types.GeocodedArea{}, fmt.Errorf("geocoder request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, types.GeocodedArea{}, fmt.Errorf("geocoder request: %w", err)
	}
	defer resp.Body.Close()

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, types.GeocodedArea{}, fmt.Errorf("decoding nominatim response for %q: %w", query, err)
	}
	if len(results) == 0 {
		return nil, types.GeocodedArea{}, fmt.Errorf("no results found for %q", query)
	}

	first := results[0]
	origID, err := first.OsmID.Int64()
	if err != nil {
		return nil, types.GeocodedArea{}, fmt.Errorf("osm_id was not an integer")
	}

	id := uint64(origID)
	if first.OsmType == "relation" {
		id += 3_600_000_000
	}

	var ids []uint64
	if first.OsmType == "way" {
		ids = []uint64{id + 2_400_000_000, id}
	} else {
		ids = []uint64{id}
	}

	area := types.GeocodedArea{
		ID:       uint64(origID),
		Type:     first.OsmType,
		Name:     first.DisplayName,
		Original: query,
	}
	return ids, area, nil
}
