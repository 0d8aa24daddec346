package ml

// Classifier maps one feature row to a class id.
type Classifier interface {
	PredictClass(features []float64) (int, error)
	FeatureCount() int
}

var _ Classifier = (*Booster)(nil)
