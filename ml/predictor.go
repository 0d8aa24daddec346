package ml

import (
	"fmt"
)

// UnknownTrack is reported when the model yields a class id the label encoder
// does not know.
const UnknownTrack = "Unknown Track"

// Prediction is the outcome of one Predict call.
type Prediction struct {
	ClassID int
	Track   string
	// Known is false when Track is UnknownTrack.
	Known bool
}

// TrackPredictor turns an answer vector into a track.
type TrackPredictor interface {
	Predict(answers []float64) (Prediction, error)
	FeatureNames() []string
}

// Predictor holds the loaded artifacts. It is read-only after construction and
// safe for concurrent use.
type Predictor struct {
	model    Classifier
	classes  []string
	features []string
}

// NewPredictor copies the encoder classes and feature names so later changes
// to the caller's slices do not leak into predictions. It fails with
// ErrShapeMismatch when the model and the feature list disagree on width.
func NewPredictor(model Classifier, encoder *LabelEncoder, featureNames []string) (*Predictor, error) {
	if model == nil || encoder == nil {
		return nil, ErrNotTrained
	}
	if model.FeatureCount() != len(featureNames) {
		return nil, fmt.Errorf("%w: model expects %d features, feature list has %d",
			ErrShapeMismatch, model.FeatureCount(), len(featureNames))
	}
	return &Predictor{
		model:    model,
		classes:  append([]string(nil), encoder.Classes...),
		features: append([]string(nil), featureNames...),
	}, nil
}

// NewPredictorFromBundle validates b before building the predictor.
func NewPredictorFromBundle(b *Bundle) (*Predictor, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return NewPredictor(b.Model, b.Encoder, b.FeatureNames)
}

// Predict scores answers, which must be in FeatureNames order. NaN marks a
// missing answer.
func (p *Predictor) Predict(answers []float64) (Prediction, error) {
	if len(answers) != len(p.features) {
		return Prediction{}, fmt.Errorf("%w: expected %d answers, got %d", ErrShapeMismatch, len(p.features), len(answers))
	}
	id, err := p.model.PredictClass(answers)
	if err != nil {
		return Prediction{}, err
	}
	if id < 0 || id >= len(p.classes) {
		return Prediction{ClassID: id, Track: UnknownTrack}, nil
	}
	return Prediction{ClassID: id, Track: p.classes[id], Known: true}, nil
}

// FeatureNames returns the answer order the model was trained on.
func (p *Predictor) FeatureNames() []string {
	return append([]string(nil), p.features...)
}

// Classes returns the track names indexed by class id.
func (p *Predictor) Classes() []string {
	return append([]string(nil), p.classes...)
}
