// Package overpass talks to a remote Overpass API endpoint and
// coalesces/caches identical outbound requests.
package overpass

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultEndpoint = "https://overpass-api.de/api/interpreter"

// Client submits a preprocessed Overpass-QL query and returns the raw
// response body along with the HTTP status, so callers can decide how
// to interpret a non-200 (the body is the server's syntax-error text).
type Client interface {
	Query(ctx context.Context, query string) (body []byte, status int, err error)
}

// HTTPClient is the production Client, POSTing the query body to a
// configured Overpass endpoint.
type HTTPClient struct {
	Endpoint   string
	HTTPClient *http.Client
}

// NewHTTPClient returns an HTTPClient targeting the public Overpass
// endpoint with http.DefaultClient.
func NewHTTPClient() *HTTPClient {
	return &HTTPClient{Endpoint: defaultEndpoint, HTTPClient: http.DefaultClient}
}

func (c *HTTPClient) Query(ctx context.Context, query string) ([]byte, int, error) {
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(query))
	if err != nil {
		return nil, 0, fmt.Errorf("overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("overpass request: %w", err)
	}

	return body, resp.StatusCode, nil
}
