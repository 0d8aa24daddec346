// Package training runs the offline pipeline that turns a labeled answers CSV
// into the model, label encoder and feature-name artifacts.
package training

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"trackrec/artifact"
	"trackrec/config"
	"trackrec/db"
	"trackrec/ml"
)

// Options controls the optional parts of a run. The zero value prints to
// stdout, runs the default smoke test and skips rendering and exports.
type Options struct {
	Out io.Writer
	Log *zap.Logger
	// Store overrides the store built from the artifacts config.
	Store artifact.Store

	SmokeAnswers  []float64
	SmokeExpected string
	SkipSmoke     bool

	RenderTrees  int
	RenderDir    string
	RenderFormat string

	ExportNpyDir string
}

// Result describes a finished training run.
type Result struct {
	Bundle          *ml.Bundle
	Report          *ml.Report
	Importances     []ml.FeatureImportance
	SmokePrediction string
	Run             db.TrainingRun
	Rendered        []string
}

// DefaultSmokeAnswers is ten 1s followed by twenty 0s, a clear "bio" profile.
func DefaultSmokeAnswers() []float64 {
	answers := make([]float64, 30)
	for i := 0; i < 10; i++ {
		answers[i] = 1
	}
	return answers
}

const defaultSmokeExpected = "bio"

// Run trains on cfg.Training.Dataset and saves the artifacts. Every randomized
// step uses cfg.Training.Seed, so equal inputs give byte-identical artifacts.
func Run(ctx context.Context, cfg config.Config, opts Options) (*Result, error) {
	start := time.Now()
	tc := cfg.Training
	if tc.Dataset == "" {
		return nil, errors.New("dataset is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	ds, err := ml.ReadCSVFile(tc.Dataset, tc.TargetColumn)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	log.Info("dataset loaded", zap.String("path", tc.Dataset), zap.Int("rows", ds.Rows()), zap.Int("features", len(ds.FeatureNames)))
	if err := ds.WriteSummary(out, 5); err != nil {
		return nil, err
	}

	encoder, err := ml.FitLabelEncoder(ds.Target)
	if err != nil {
		return nil, err
	}
	labels, err := encoder.Transform(ds.Target)
	if err != nil {
		return nil, err
	}
	if encoder.NumClasses() < 2 {
		return nil, fmt.Errorf("need at least 2 tracks, found %d", encoder.NumClasses())
	}

	balancedX, balancedY, err := ml.RandomOverSample(ds.X, labels, tc.Seed)
	if err != nil {
		return nil, fmt.Errorf("oversample: %w", err)
	}
	trainX, trainY, validX, validY, err := ml.TrainTestSplit(balancedX, balancedY, tc.TestRatio, tc.Seed)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	log.Info("data prepared",
		zap.Int("balanced_rows", len(balancedY)),
		zap.Int("train_rows", len(trainY)),
		zap.Int("validation_rows", len(validY)),
		zap.Strings("tracks", encoder.Classes),
	)

	if opts.ExportNpyDir != "" {
		if err := ml.ExportNpy(opts.ExportNpyDir, "train", trainX, trainY); err != nil {
			return nil, fmt.Errorf("export train matrices: %w", err)
		}
		if err := ml.ExportNpy(opts.ExportNpyDir, "validation", validX, validY); err != nil {
			return nil, fmt.Errorf("export validation matrices: %w", err)
		}
		log.Info("matrices exported", zap.String("dir", opts.ExportNpyDir))
	}

	params := BoosterParams(tc)
	train := ml.EvalSet{Name: "train", X: trainX, Y: trainY}
	valid := ml.EvalSet{Name: "validation", X: validX, Y: validY}
	booster, err := ml.TrainBooster(params, train, encoder.NumClasses(), []ml.EvalSet{train, valid}, log.Named("booster"))
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}

	bundle := &ml.Bundle{Model: booster, Encoder: encoder, FeatureNames: ds.FeatureNames}
	store := opts.Store
	if store == nil {
		if store, err = artifact.FromConfig(cfg.Artifacts); err != nil {
			return nil, err
		}
	}
	names := ml.ArtifactNamesFrom(cfg.Artifacts)
	if err := ml.SaveBundle(ctx, store, names, bundle); err != nil {
		return nil, err
	}
	log.Info("artifacts saved",
		zap.String("model", store.Location(names.Model)),
		zap.String("label_encoder", store.Location(names.Encoder)),
		zap.String("feature_names", store.Location(names.Features)),
	)

	result := &Result{Bundle: bundle}

	result.Importances = booster.FeatureImportances(ds.FeatureNames)
	fmt.Fprintln(out)
	if err := ml.WriteImportanceChart(out, result.Importances, 50); err != nil {
		return nil, err
	}

	if !opts.SkipSmoke {
		result.SmokePrediction, err = smokeTest(out, log, bundle, opts)
		if err != nil {
			return nil, err
		}
	}

	result.Report, err = ml.Evaluate(booster, validX, validY, encoder.NumClasses())
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	fmt.Fprintln(out)
	if err := result.Report.WriteReport(out, encoder.Classes); err != nil {
		return nil, err
	}

	if opts.RenderTrees > 0 {
		format := opts.RenderFormat
		if format == "" {
			format = "svg"
		}
		if err := os.MkdirAll(opts.RenderDir, 0o755); err != nil {
			return nil, err
		}
		result.Rendered, err = booster.RenderTrees(opts.RenderDir, format, opts.RenderTrees, ds.FeatureNames, encoder.Classes)
		if err != nil {
			return nil, err
		}
		log.Info("trees rendered", zap.Int("count", len(result.Rendered)), zap.String("dir", opts.RenderDir))
	}

	result.Run = db.TrainingRun{
		Dataset:      tc.Dataset,
		Rows:         ds.Rows(),
		Features:     len(ds.FeatureNames),
		Classes:      encoder.NumClasses(),
		Trees:        params.Rounds,
		MaxDepth:     params.MaxDepth,
		LearningRate: params.LearningRate,
		Seed:         tc.Seed,
		Accuracy:     result.Report.Accuracy,
		ModelPath:    store.Location(names.Model),
		Duration:     time.Since(start).Seconds(),
	}
	if curve := booster.LearningCurve.Values; len(curve) > 0 {
		last := curve[len(curve)-1]
		result.Run.TrainLoss, result.Run.ValidLoss = last[0], last[1]
	}
	if tc.RunsDB != "" {
		if err := recordRun(ctx, tc.RunsDB, &result.Run); err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
		log.Info("run recorded", zap.String("id", result.Run.ID), zap.String("ledger", tc.RunsDB))
	}

	log.Info("training finished",
		zap.Float64("validation_accuracy", result.Report.Accuracy),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// BoosterParams maps the training config onto boosting hyperparameters.
func BoosterParams(tc config.TrainingConfig) ml.BoosterParams {
	params := ml.DefaultBoosterParams()
	params.Rounds = tc.Trees
	params.MaxDepth = tc.MaxDepth
	params.LearningRate = tc.LearningRate
	params.Lambda = tc.Lambda
	params.MinChildWeight = tc.MinChildWeight
	params.Threads = tc.Threads
	return params
}

func smokeTest(out io.Writer, log *zap.Logger, bundle *ml.Bundle, opts Options) (string, error) {
	answers := opts.SmokeAnswers
	expected := opts.SmokeExpected
	if answers == nil {
		answers = DefaultSmokeAnswers()
		if expected == "" {
			expected = defaultSmokeExpected
		}
	}
	if len(answers) != len(bundle.FeatureNames) {
		log.Warn("skipping smoke test, answer count does not match features",
			zap.Int("answers", len(answers)), zap.Int("features", len(bundle.FeatureNames)))
		return "", nil
	}

	predictor, err := ml.NewPredictorFromBundle(bundle)
	if err != nil {
		return "", err
	}
	prediction, err := predictor.Predict(answers)
	if err != nil {
		return "", fmt.Errorf("smoke test: %w", err)
	}
	fmt.Fprintf(out, "\nExpected Track: %s, Predicted Track: %s\n", expected, prediction.Track)
	return prediction.Track, nil
}

func recordRun(ctx context.Context, path string, run *db.TrainingRun) error {
	store, err := db.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Record(ctx, run)
}
