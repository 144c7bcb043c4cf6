package cmd

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/underpass/internal/elevation"
	"github.com/MeKo-Tech/underpass/internal/geocode"
	"github.com/MeKo-Tech/underpass/internal/graph"
	"github.com/MeKo-Tech/underpass/internal/httpapi"
	"github.com/MeKo-Tech/underpass/internal/overpass"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the graph-evaluation HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 3000, "Listen port")
	serveCmd.Flags().String("overpass-endpoint", "https://overpass-api.de/api/interpreter", "Overpass API endpoint")

	mustBind := func(key, name string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("port", "port")
	mustBind("overpass-endpoint", "overpass-endpoint")
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	port := viper.GetInt("port")
	dataPath := viper.GetString("data-path")
	overpassEndpoint := viper.GetString("overpass-endpoint")

	// OTEL_EXPORTER_OTLP_ENDPOINT is surfaced here for operational
	// visibility only; no exporter is wired, and the headers variable is
	// never logged (see DESIGN.md Open Question decision).
	if endpoint := viper.GetString("otel-exporter-otlp-endpoint"); endpoint != "" {
		logger.Info("otel endpoint configured but unused", "endpoint", endpoint)
	}

	elevationMap, err := elevation.New(filepath.Join(dataPath, "elevation"))
	if err != nil {
		return fmt.Errorf("loading elevation rasters: %w", err)
	}

	evaluator := &graph.Evaluator{
		OverpassClient: &overpass.HTTPClient{Endpoint: overpassEndpoint, HTTPClient: http.DefaultClient},
		OverpassCache:  overpass.NewCache(),
		Geocoder:       geocode.New(),
		ElevationMap:   elevationMap,
	}

	server := &httpapi.Server{
		Evaluator:   evaluator,
		TaginfoPath: filepath.Join(dataPath, "taginfo", "taginfo.json"),
		StaticDir:   filepath.Join(dataPath, "static"),
		Logger:      logger,
	}

	addr := fmt.Sprintf(":%d", port)
	logger.Info("listening", "addr", addr, "data_path", dataPath, "overpass_endpoint", overpassEndpoint)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return httpServer.ListenAndServe()
}
