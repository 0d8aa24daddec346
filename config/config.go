// Package config loads the settings shared by the predictor service and the trainer.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is the prefix of environment overrides. Keys are built from the
// field path, e.g. TRACKREC_HTTP_PORT or TRACKREC_TRAINING_RUNS_DB; bare names
// such as PORT are never consulted.
const EnvPrefix = "TRACKREC"

// Config is the root of config.yaml.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Cache     CacheConfig     `yaml:"cache"`
	Training  TrainingConfig  `yaml:"training"`
}

// HTTPConfig configures the predictor listener.
type HTTPConfig struct {
	Port           int           `yaml:"port" split_words:"true" validate:"min=1,max=65535"`
	Timeout        time.Duration `yaml:"timeout" split_words:"true" validate:"gt=0"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes" split_words:"true" validate:"gt=0"`
	AllowedOrigins []string      `yaml:"allowed_origins" split_words:"true" validate:"min=1"`
	Debug          bool          `yaml:"debug" split_words:"true"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level" split_words:"true" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development" split_words:"true"`
	// File enables a rotating file sink next to stderr.
	File       string `yaml:"file" split_words:"true"`
	MaxSizeMB  int    `yaml:"max_size_mb" split_words:"true" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" split_words:"true" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" split_words:"true" validate:"gte=0"`
}

// ArtifactsConfig names the three files the trainer writes and the service
// reads. The payloads are JSON regardless of the file names.
type ArtifactsConfig struct {
	Dir          string   `yaml:"dir" split_words:"true"`
	ModelFile    string   `yaml:"model_file" split_words:"true" validate:"required"`
	EncoderFile  string   `yaml:"encoder_file" split_words:"true" validate:"required"`
	FeaturesFile string   `yaml:"features_file" split_words:"true" validate:"required"`
	S3           S3Config `yaml:"s3"`
}

// S3Config switches artifact storage to a bucket when Bucket is set.
type S3Config struct {
	Bucket string `yaml:"bucket" split_words:"true"`
	Region string `yaml:"region" split_words:"true" validate:"required_with=Bucket"`
	Prefix string `yaml:"prefix" split_words:"true"`
}

// CacheConfig sizes the in-process prediction memo.
type CacheConfig struct {
	// Size is the number of memoized predictions, 0 disables the memo.
	Size int `yaml:"size" split_words:"true" validate:"gte=0"`
}

// TrainingConfig holds the trainer's dataset location and boosting parameters.
type TrainingConfig struct {
	Dataset        string  `yaml:"dataset" split_words:"true"`
	TargetColumn   string  `yaml:"target_column" split_words:"true" validate:"required"`
	Trees          int     `yaml:"trees" split_words:"true" validate:"min=1"`
	MaxDepth       int     `yaml:"max_depth" split_words:"true" validate:"min=1"`
	LearningRate   float64 `yaml:"learning_rate" split_words:"true" validate:"gt=0,lte=1"`
	Lambda         float64 `yaml:"lambda" split_words:"true" validate:"gte=0"`
	MinChildWeight float64 `yaml:"min_child_weight" split_words:"true" validate:"gte=0"`
	TestRatio      float64 `yaml:"test_ratio" split_words:"true" validate:"gt=0,lt=1"`
	Seed           int64   `yaml:"seed" split_words:"true"`
	Threads        int     `yaml:"threads" split_words:"true" validate:"min=1"`
	RunsDB         string  `yaml:"runs_db" split_words:"true"`
}

// Default returns a configuration that needs no file to run.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Port:           5000,
			Timeout:        30 * time.Second,
			MaxBodyBytes:   1 << 20,
			AllowedOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Artifacts: ArtifactsConfig{
			Dir:          ".",
			ModelFile:    "track_model.pkl",
			EncoderFile:  "track_label_encoder.pkl",
			FeaturesFile: "track_feature_names.pkl",
		},
		Cache: CacheConfig{Size: 1024},
		Training: TrainingConfig{
			Dataset:        "enhanced_track_suitability_dataset.csv",
			TargetColumn:   "Target",
			Trees:          200,
			MaxDepth:       6,
			LearningRate:   0.1,
			Lambda:         1,
			MinChildWeight: 1,
			TestRatio:      0.2,
			Seed:           42,
			Threads:        4,
		},
	}
}

// Load reads path on top of Default, applies environment overrides and validates
// the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		if err := yaml.NewDecoder(file).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports the first constraint cfg violates.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return fmt.Errorf("invalid config: %s failed %q (value %v)", first.Namespace(), first.Tag(), first.Value())
	}
	return fmt.Errorf("invalid config: %w", err)
}
