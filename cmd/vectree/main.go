// Command vectree is a diagnostic and operator CLI for the incremental
// change-detection pipeline: snapshot a workspace, show changes since
// the last snapshot, diff stored snapshots, and validate an embedding
// provider configuration. Each invocation is one pass; it does not
// watch or schedule.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dshills/vectree/internal/config"
	"github.com/dshills/vectree/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	flagConfig      string
	flagDBPath      string
	flagLogLevel    string
	flagMetricsAddr string
)

func main() {
	root := &cobra.Command{
		Use:           "vectree",
		Short:         "Incremental workspace change detection and embedding pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "vectree.yaml", "config file path")
	root.PersistentFlags().StringVar(&flagDBPath, "db", "", "snapshot database path (overrides config)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&flagMetricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address while running")

	root.AddCommand(
		newSnapshotCmd(),
		newStatusCmd(),
		newDiffCmd(),
		newPathsCmd(),
		newVerifyCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "vectree: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig applies flag overrides on top of the config file + env
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagDBPath != "" {
		cfg.DBPath = flagDBPath
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	return cfg, nil
}

// setupLogger logs to stderr so stdout stays machine-readable
func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

// serveMetrics exposes promhttp on addr for the lifetime of the process
func serveMetrics(addr string, logger *slog.Logger) {
	if addr == "" {
		return
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info("metrics.listen", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics.serve", "err", err)
		}
	}()
}

func openStore(cfg *config.Config) (*storage.SQLiteStore, error) {
	return storage.NewSQLiteStore(cfg.DBPath)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vectree %s\n", version)
			fmt.Printf("Build Time: %s\n", buildTime)
			fmt.Printf("Build Mode: %s\n", storage.BuildMode)
			fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		},
	}
}
