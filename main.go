package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"trackrec/artifact"
	"trackrec/config"
	thttp "trackrec/http"
	"trackrec/logger"
	"trackrec/ml"
	"trackrec/monitoring"
)

func main() {
	configPath := flag.String("config", "config.yaml", "YAML config file, missing file means defaults")
	debug := flag.Bool("debug", false, "log every request payload and prediction")
	flag.Parse()

	// 1. Load config
	path := *configPath
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *debug {
		cfg.HTTP.Debug = true
	}
	if cfg.HTTP.Debug {
		cfg.Log.Development = true
		cfg.Log.Level = "debug"
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 2. Load artifacts once
	store, err := artifact.FromConfig(cfg.Artifacts)
	if err != nil {
		log.Fatal("failed to open artifact store", zap.Error(err))
	}
	bundle, err := ml.LoadBundle(context.Background(), store, ml.ArtifactNamesFrom(cfg.Artifacts))
	if err != nil {
		log.Fatal("failed to load artifacts", zap.Error(err))
	}
	predictor, err := ml.NewPredictorFromBundle(bundle)
	if err != nil {
		log.Fatal("failed to build predictor", zap.Error(err))
	}
	served, err := ml.NewCachingPredictor(predictor, cfg.Cache.Size)
	if err != nil {
		log.Fatal("failed to build prediction cache", zap.Error(err))
	}
	monitoring.SetModelInfo(len(bundle.FeatureNames), bundle.Encoder.NumClasses(), len(bundle.Model.Trees))
	log.Info("artifacts loaded",
		zap.String("model", store.Location(cfg.Artifacts.ModelFile)),
		zap.Int("features", len(bundle.FeatureNames)),
		zap.Strings("tracks", predictor.Classes()),
		zap.Int("cache_size", cfg.Cache.Size),
	)

	// 3. Start HTTP server
	server := thttp.NewServer(thttp.ServerConfigFrom(cfg.HTTP), served, log.Named("http"))
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 4. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	if err := server.Stop(); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("exiting")
}
