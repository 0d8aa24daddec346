package ml

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"

	"trackrec/artifact"
	"trackrec/config"
)

// ArtifactNames are the store keys of the three training artifacts.
type ArtifactNames struct {
	Model    string
	Encoder  string
	Features string
}

// ArtifactNamesFrom takes the file names from the artifacts config.
func ArtifactNamesFrom(cfg config.ArtifactsConfig) ArtifactNames {
	return ArtifactNames{
		Model:    cfg.ModelFile,
		Encoder:  cfg.EncoderFile,
		Features: cfg.FeaturesFile,
	}
}

// Bundle is everything the predictor needs: the model, the class list and the
// feature order the model was trained on.
type Bundle struct {
	Model        *Booster
	Encoder      *LabelEncoder
	FeatureNames []string
}

// Validate checks that the three parts agree with each other.
func (b *Bundle) Validate() error {
	if b.Model == nil || b.Encoder == nil {
		return ErrNotTrained
	}
	if err := b.Model.Validate(); err != nil {
		return err
	}
	if len(b.FeatureNames) != b.Model.NumFeatures {
		return fmt.Errorf("%w: model expects %d features, feature list has %d",
			ErrShapeMismatch, b.Model.NumFeatures, len(b.FeatureNames))
	}
	if b.Encoder.NumClasses() != b.Model.NumClass {
		return fmt.Errorf("model has %d classes, label encoder has %d", b.Model.NumClass, b.Encoder.NumClasses())
	}
	return nil
}

// SaveBundle writes the model, the encoder and the feature names to store.
func SaveBundle(ctx context.Context, store artifact.Store, names ArtifactNames, b *Bundle) error {
	if err := b.Validate(); err != nil {
		return err
	}
	model, err := b.Model.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	encoder, err := json.Marshal(b.Encoder)
	if err != nil {
		return fmt.Errorf("encode label encoder: %w", err)
	}
	features, err := json.Marshal(b.FeatureNames)
	if err != nil {
		return fmt.Errorf("encode feature names: %w", err)
	}

	for _, item := range []struct {
		name    string
		payload []byte
	}{
		{names.Model, model},
		{names.Encoder, encoder},
		{names.Features, features},
	} {
		if err := store.Put(ctx, item.name, item.payload); err != nil {
			return fmt.Errorf("save %s: %w", store.Location(item.name), err)
		}
	}
	return nil
}

// LoadBundle reads and cross-checks the three artifacts.
func LoadBundle(ctx context.Context, store artifact.Store, names ArtifactNames) (*Bundle, error) {
	var b Bundle

	payload, err := store.Get(ctx, names.Model)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	b.Model = &Booster{}
	if err := b.Model.UnmarshalBinary(payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", store.Location(names.Model), err)
	}

	payload, err = store.Get(ctx, names.Encoder)
	if err != nil {
		return nil, fmt.Errorf("load label encoder: %w", err)
	}
	b.Encoder = &LabelEncoder{}
	if err := json.Unmarshal(payload, b.Encoder); err != nil {
		return nil, fmt.Errorf("decode %s: %w", store.Location(names.Encoder), err)
	}

	payload, err = store.Get(ctx, names.Features)
	if err != nil {
		return nil, fmt.Errorf("load feature names: %w", err)
	}
	if err := json.Unmarshal(payload, &b.FeatureNames); err != nil {
		return nil, fmt.Errorf("decode %s: %w", store.Location(names.Features), err)
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}
