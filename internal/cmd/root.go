package cmd

import (
	"fmt"
	"os"
	"strings"

	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string
var logger *slog.Logger

var rootCmd = &cobra.Command{
	Use:   "underpass",
	Short: "A visual-programming backend for geospatial queries over OpenStreetMap",
	Long: `Underpass evaluates a client-submitted node graph: raw Overpass-QL
fragments are composed, dispatched against a public Overpass endpoint,
converted to GeoJSON, and passed through geometric filters (road
angle, road length, elevation, in-view-of).`,
}

func Execute() {
	if logger == nil {
		initLogging() // fallback in case cobra init didn't fire
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().String("data-path", ".", "Base directory for the elevation subtree and taginfo file")
	rootCmd.PersistentFlags().String("log-path", "", "Write logs to this file instead of stderr")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose logging")

	mustBind := func(key, name string) {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("data-path", "data-path")
	mustBind("log-path", "log-path")
	mustBind("log-level", "log-level")
	mustBind("verbose", "verbose")

	mustBindEnv := func(key, env string) {
		if err := viper.BindEnv(key, env); err != nil {
			panic(fmt.Sprintf("failed to bind env var: %v", err))
		}
	}

	// These names are fixed by the deployment contract and carry no
	// UNDERPASS_ prefix, unlike the rest of the config surface.
	mustBindEnv("data-path", "DATA_PATH")
	mustBindEnv("log-path", "LOG_PATH")
	mustBindEnv("log-level", "LOG_LEVEL")
	mustBindEnv("port", "PORT")
	mustBindEnv("otel-exporter-otlp-endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	mustBindEnv("otel-exporter-otlp-headers", "OTEL_EXPORTER_OTLP_HEADERS")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("UNDERPASS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func initLogging() {
	levelStr := strings.ToLower(viper.GetString("log-level"))
	level := slog.LevelInfo
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error", "err":
		level = slog.LevelError
	default:
		fmt.Fprintf(os.Stderr, "Unknown log level %q, defaulting to info\n", levelStr)
		level = slog.LevelInfo
	}

	out := os.Stderr
	if path := viper.GetString("log-path"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file %q: %v\n", path, err)
		} else {
			handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})
			logger = slog.New(handler)
			slog.SetDefault(logger)
			return
		}
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}
