package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/underpass/internal/graph"
	"github.com/MeKo-Tech/underpass/internal/overpass"
)

type stubOverpassClient struct {
	body string
}

func (c *stubOverpassClient) Query(ctx context.Context, query string) ([]byte, int, error) {
	return []byte(c.body), 200, nil
}

func newTestServer() *Server {
	return &Server{
		Evaluator: &graph.Evaluator{
			OverpassClient: &stubOverpassClient{body: `{"elements":[]}`},
			OverpassCache:  overpass.NewCache(),
		},
	}
}

func TestHandleSearchHappyPathReturnsEmptyCollection(t *testing.T) {
	s := newTestServer()

	body := []byte(`{"bbox":{"ne":[1,1],"sw":[0,0]},"graph":{"nodes":[{"id":"sink","label":"Map"}],"connections":[]}}`)
	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp, "data")
}

func TestHandleSearchMalformedBodyReturnsTextFormatError(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "text", payload["format"])
}

func TestHandleSearchRejectsUnknownNodeKind(t *testing.T) {
	s := newTestServer()

	body := []byte(`{"bbox":{"ne":[1,1],"sw":[0,0]},"graph":{"nodes":[{"id":"ghost","label":"Not A Real Kind"},{"id":"sink","label":"Map"}],"connections":[]}}`)
	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code, "an unknown node kind must fail even when disconnected from the sink")

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Contains(t, payload["error"], "unknown node kind")
}

func TestHandleSearchInputMissingIncludesNodeID(t *testing.T) {
	s := newTestServer()

	body := []byte(`{"bbox":{"ne":[1,1],"sw":[0,0]},"graph":{"nodes":[{"id":"o","label":"Overpass"},{"id":"sink","label":"Map"}],"connections":[{"source":"o","target":"sink","targetInput":"in"}]}}`)
	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Equal(t, "o", payload["node_id"])
}

func TestHandleTaginfoServesConfiguredFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taginfo.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"data_format":1}`), 0o644))

	s := &Server{Evaluator: &graph.Evaluator{}, TaginfoPath: path}
	req := httptest.NewRequest(http.MethodGet, "/taginfo.json", nil)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"data_format":1}`, rec.Body.String())
}

func TestHandleTaginfoWithoutConfiguredPathIs404(t *testing.T) {
	s := &Server{Evaluator: &graph.Evaluator{}}
	req := httptest.NewRequest(http.MethodGet, "/taginfo.json", nil)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleIndexFallsBackToPlaceholderWithoutStaticDir(t *testing.T) {
	s := &Server{Evaluator: &graph.Evaluator{}}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "underpass")
}

func TestHandleIndexPrefersOnDiskOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<p>custom build</p>"), 0o644))

	s := &Server{Evaluator: &graph.Evaluator{}, StaticDir: dir}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "<p>custom build</p>", rec.Body.String())
}

func TestFindStaticFileMissingFileIsAMiss(t *testing.T) {
	_, ok := findStaticFile(t.TempDir(), "index.js")
	require.False(t, ok)
}

func TestHandleHealthzReturnsOK(t *testing.T) {
	s := &Server{Evaluator: &graph.Evaluator{}}
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestCORSAllowsCrossOriginPostAndPreflight(t *testing.T) {
	s := newTestServer()

	preflight := httptest.NewRequest(http.MethodOptions, "/search", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, preflight)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")

	body := []byte(`{"bbox":{"ne":[1,1],"sw":[0,0]},"graph":{"nodes":[{"id":"sink","label":"Map"}],"connections":[]}}`)
	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader(body))
	rec2 := httptest.NewRecorder()
	s.Router().ServeHTTP(rec2, req)
	require.Equal(t, "*", rec2.Header().Get("Access-Control-Allow-Origin"))
}
