package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"trackrec/config"
	"trackrec/logger"
	"trackrec/training"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	dataset := flag.String("dataset", "", "training CSV path")
	targetColumn := flag.String("target_column", "", "label column name")
	artifactsDir := flag.String("artifacts_dir", "", "directory for the model, label encoder and feature names")
	trees := flag.Int("n_estimators", 0, "boosting rounds")
	maxDepth := flag.Int("max_depth", 0, "max tree depth")
	learningRate := flag.Float64("learning_rate", 0, "shrinkage per round")
	testRatio := flag.Float64("test_ratio", 0, "validation share")
	seed := flag.Int64("seed", 0, "random seed for oversampling and the split")
	threads := flag.Int("threads", 0, "split search workers")
	runsDB := flag.String("runs_db", "", "SQLite ledger of training runs")
	listRuns := flag.Bool("list_runs", false, "print recorded runs and exit")
	renderTrees := flag.Int("render_trees", 0, "render the first N trees with graphviz")
	renderDir := flag.String("render_dir", "trees", "output directory for rendered trees")
	renderFormat := flag.String("render_format", "svg", "svg, png or jpg")
	exportNpy := flag.String("export_npy", "", "export the balanced train and validation matrices to this directory")
	smoke := flag.String("smoke", "", "comma separated answers for the post-training check")
	smokeExpected := flag.String("smoke_expected", "", "track expected for -smoke")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// flags given on the command line win over the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dataset":
			cfg.Training.Dataset = *dataset
		case "target_column":
			cfg.Training.TargetColumn = *targetColumn
		case "artifacts_dir":
			cfg.Artifacts.Dir = *artifactsDir
		case "n_estimators":
			cfg.Training.Trees = *trees
		case "max_depth":
			cfg.Training.MaxDepth = *maxDepth
		case "learning_rate":
			cfg.Training.LearningRate = *learningRate
		case "test_ratio":
			cfg.Training.TestRatio = *testRatio
		case "seed":
			cfg.Training.Seed = *seed
		case "threads":
			cfg.Training.Threads = *threads
		case "runs_db":
			cfg.Training.RunsDB = *runsDB
		}
	})

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := config.Validate(cfg); err != nil {
		log.Fatal("invalid flags", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *listRuns {
		if cfg.Training.RunsDB == "" {
			log.Fatal("-list_runs needs -runs_db or training.runs_db")
		}
		if err := training.ListRuns(ctx, cfg.Training.RunsDB, os.Stdout, 20); err != nil {
			log.Fatal("failed to list runs", zap.Error(err))
		}
		return
	}

	opts := training.Options{
		Out:          os.Stdout,
		Log:          log.Named("training"),
		RenderTrees:  *renderTrees,
		RenderDir:    *renderDir,
		RenderFormat: *renderFormat,
		ExportNpyDir: *exportNpy,
	}
	if *smoke != "" {
		answers, err := parseAnswers(*smoke)
		if err != nil {
			log.Fatal("invalid -smoke", zap.Error(err))
		}
		opts.SmokeAnswers = answers
		opts.SmokeExpected = *smokeExpected
	}

	result, err := training.Run(ctx, *cfg, opts)
	if err != nil {
		log.Fatal("training failed", zap.Error(err))
	}
	fmt.Printf("\nmodel saved to %s\n", result.Run.ModelPath)
}

func parseAnswers(list string) ([]float64, error) {
	fields := strings.Split(list, ",")
	answers := make([]float64, len(fields))
	for i, field := range fields {
		value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("answer %d: %w", i, err)
		}
		answers[i] = value
	}
	return answers, nil
}
