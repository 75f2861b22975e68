package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alienxp03/mealjury/internal/calibrate"
	"github.com/alienxp03/mealjury/internal/config"
	"github.com/alienxp03/mealjury/internal/engine"
	"github.com/alienxp03/mealjury/internal/storage"
	"github.com/alienxp03/mealjury/web/handlers"
)

func main() {
	port := flag.Int("port", 8186, "Server port")
	dbPath := flag.String("db", "", "Database path (default: ~/.mealjury/mealjury.db)")
	cfgPath := flag.String("config", "", "Config file path (default: ~/.mealjury/config.yaml)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Initialize slog
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if *debug {
		opts.Level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, opts))
	slog.SetDefault(logger)

	// Load config
	var cfg *config.Config
	var err error
	if *cfgPath != "" {
		cfg, err = config.LoadFrom(*cfgPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize storage
	path := *dbPath
	if path == "" {
		path = storage.DefaultDBPath()
	}

	slog.Info("Initializing storage", "path", path)
	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.Initialize(); err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}

	// Initialize calibration learner
	learner := calibrate.NewLearner(
		calibrate.WithStore(store),
		calibrate.WithGates(cfg.Calibration.MinCorrections, cfg.Calibration.MinConfidence),
		calibrate.WithPriors(cfg.Priors()),
	)
	if err := learner.LoadFromStore(); err != nil {
		slog.Error("Failed to load calibration state", "error", err)
		os.Exit(1)
	}

	// Wire the pipeline
	eng := engine.New(
		engine.WithThreshold(cfg.Defaults.VarianceThreshold),
		engine.WithMaxRounds(cfg.Defaults.MaxDebateRounds),
		engine.WithWeights(cfg.SourceWeights()),
		engine.WithLearner(learner),
		engine.WithStorage(store),
		engine.WithLogger(logger),
	)

	h := handlers.New(eng)

	serverPort := *port
	if !flagChanged("port") && cfg.Server.Port != 0 {
		serverPort = cfg.Server.Port
	}

	// Start server
	addr := fmt.Sprintf(":%d", serverPort)
	server := &http.Server{
		Addr:    addr,
		Handler: h.Routes(),
	}

	// Handle shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		slog.Info("Shutting down...")
		server.Close()
	}()

	slog.Info("Starting mealjury API server", "url", fmt.Sprintf("http://localhost%s", addr))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func flagChanged(name string) bool {
	changed := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			changed = true
		}
	})
	return changed
}
