// Package httpapi exposes the graph evaluator over HTTP: the search
// endpoint, a taginfo catalogue passthrough, and placeholder static
// routes for the frontend.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MeKo-Tech/underpass/internal/graph"
	"github.com/MeKo-Tech/underpass/internal/types"
)

// Server wires the evaluator and static data paths into a chi router.
type Server struct {
	Evaluator   *graph.Evaluator
	TaginfoPath string // {DATA_PATH}/taginfo/taginfo.json
	StaticDir   string // optional on-disk override for index.html/css/js
	Logger      *slog.Logger
}

// Router builds the full route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(withCORS)

	r.Get("/healthz", handleHealthz)
	r.Get("/", s.handleIndex)
	r.Get("/index.css", s.handleStatic("text/css; charset=utf-8", "index.css"))
	r.Get("/index.js", s.handleStatic("text/javascript; charset=utf-8", "index.js"))
	r.Get("/taginfo.json", s.handleTaginfo)
	r.Post("/search", s.handleSearch)

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// withCORS allows the browser-based graph editor, served from a
// different origin during development, to call /search.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// searchRequest mirrors the wire shape clients submit. Graph is kept
// raw so it can be handed to graph.Parse, which rejects unknown node
// kinds up front instead of letting them fail obscurely mid-evaluation.
type searchRequest struct {
	Bbox  wireBbox        `json:"bbox"`
	Graph json.RawMessage `json:"graph"`
}

type wireBbox struct {
	NE [2]float32 `json:"ne"`
	SW [2]float32 `json:"sw"`
}

type searchResponse struct {
	Data             any                   `json:"data"`
	ProcessedQueries map[string]string     `json:"processed_queries"`
	GeocodeAreas     []types.GeocodedArea  `json:"geocode_areas"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, graph.DecodeError{Cause: err})
		return
	}

	g, err := graph.Parse(req.Graph)
	if err != nil {
		writeError(w, err)
		return
	}

	bbox := types.Bbox{SW: req.Bbox.SW, NE: req.Bbox.NE}

	result, err := s.Evaluator.Evaluate(r.Context(), g, bbox)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(searchResponse{
		Data:             result.Collection,
		ProcessedQueries: result.ProcessedQueries,
		GeocodeAreas:     result.GeocodeAreas,
	})
}

// writeError maps an evaluator error to the structured 500 payload:
// {error, format, node_id?, query?, message?}. format is "xml" only
// for OqlSyntax (an Overpass syntax-error body, rendered specially by
// the frontend), "text" otherwise.
func writeError(w http.ResponseWriter, err error) {
	payload := map[string]any{
		"error":  err.Error(),
		"format": "text",
	}

	var oql graph.OqlSyntaxError
	var inputMissing graph.InputMissing
	switch {
	case errors.As(err, &oql):
		payload["format"] = "xml"
		payload["query"] = oql.Query
		payload["message"] = oql.Err
		payload["node_id"] = oql.NodeID
	case errors.As(err, &inputMissing):
		payload["node_id"] = inputMissing.NodeID
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) handleTaginfo(w http.ResponseWriter, r *http.Request) {
	if s.TaginfoPath == "" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	http.ServeFile(w, r, s.TaginfoPath)
}

// handleIndex and handleStatic serve placeholder frontend assets; the
// actual frontend bundle is out of scope here (see DESIGN.md).
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if path, ok := findStaticFile(s.StaticDir, "index.html"); ok {
		http.ServeFile(w, r, path)
		return
	}
	_, _ = w.Write([]byte("<!doctype html><title>underpass</title><p>underpass graph evaluator is running.</p>"))
}

func (s *Server) handleStatic(contentType, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		if path, ok := findStaticFile(s.StaticDir, name); ok {
			http.ServeFile(w, r, path)
			return
		}
		_, _ = w.Write([]byte("/* " + name + " placeholder */"))
	}
}

// findStaticFile allows an on-disk override of a static asset under
// dir, falling back to the built-in placeholder when absent.
func findStaticFile(dir, name string) (string, bool) {
	if dir == "" {
		return "", false
	}
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}
