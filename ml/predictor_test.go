package ml

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackrec/artifact"
)

type fixedClassifier struct {
	class    int
	features int
}

func (f fixedClassifier) PredictClass(features []float64) (int, error) {
	return f.class, nil
}

func (f fixedClassifier) FeatureCount() int { return f.features }

func TestPredictorTranslatesClass(t *testing.T) {
	encoder := &LabelEncoder{Classes: trackClasses}
	p, err := NewPredictor(fixedClassifier{class: 2, features: 30}, encoder, featureNames(30))
	require.NoError(t, err)

	got, err := p.Predict(make([]float64, 30))
	require.NoError(t, err)
	assert.Equal(t, Prediction{ClassID: 2, Track: "tech", Known: true}, got)
}

func TestPredictorUnknownTrack(t *testing.T) {
	encoder := &LabelEncoder{Classes: trackClasses}
	p, err := NewPredictor(fixedClassifier{class: 7, features: 30}, encoder, featureNames(30))
	require.NoError(t, err)

	got, err := p.Predict(make([]float64, 30))
	require.NoError(t, err)
	assert.Equal(t, UnknownTrack, got.Track)
	assert.False(t, got.Known)
}

func TestPredictorLengthMismatch(t *testing.T) {
	p, err := NewPredictor(trainSmall(t), &LabelEncoder{Classes: trackClasses}, featureNames(30))
	require.NoError(t, err)

	_, err = p.Predict(make([]float64, 29))
	assert.True(t, errors.Is(err, ErrShapeMismatch))
	_, err = p.Predict(make([]float64, 31))
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestNewPredictorRejectsFeatureListMismatch(t *testing.T) {
	_, err := NewPredictor(fixedClassifier{features: 30}, &LabelEncoder{Classes: trackClasses}, featureNames(29))
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestPredictorFeatureNamesAreCopies(t *testing.T) {
	p, err := NewPredictor(fixedClassifier{features: 2}, &LabelEncoder{Classes: trackClasses}, []string{"Q1", "Q2"})
	require.NoError(t, err)
	names := p.FeatureNames()
	names[0] = "changed"
	assert.Equal(t, []string{"Q1", "Q2"}, p.FeatureNames())

	classes := p.Classes()
	classes[0] = "changed"
	assert.Equal(t, trackClasses, p.Classes())
}

func TestPredictorConcurrentUse(t *testing.T) {
	p, err := NewPredictor(trainSmall(t), &LabelEncoder{Classes: trackClasses}, featureNames(30))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := p.Predict(bioAnswers())
			assert.NoError(t, err)
			assert.Equal(t, "bio", got.Track)
		}()
	}
	wg.Wait()
}

type countingPredictor struct {
	TrackPredictor
	mu    sync.Mutex
	calls int
}

func (c *countingPredictor) Predict(answers []float64) (Prediction, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.TrackPredictor.Predict(answers)
}

func TestCachingPredictor(t *testing.T) {
	inner, err := NewPredictor(trainSmall(t), &LabelEncoder{Classes: trackClasses}, featureNames(30))
	require.NoError(t, err)
	counter := &countingPredictor{TrackPredictor: inner}

	cached, err := NewCachingPredictor(counter, 8)
	require.NoError(t, err)

	answers := bioAnswers()
	answers[5] = math.NaN()
	first, err := cached.Predict(answers)
	require.NoError(t, err)
	second, err := cached.Predict(answers)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, counter.calls)

	answers[0] = 0.5
	_, err = cached.Predict(answers)
	require.NoError(t, err)
	assert.Equal(t, 2, counter.calls)

	_, err = cached.Predict(make([]float64, 3))
	assert.Error(t, err)
	assert.Equal(t, 2, cached.(*CachingPredictor).Len(), "errors are not memoized")
	assert.Equal(t, featureNames(30), cached.FeatureNames())
}

func TestCachingPredictorDisabled(t *testing.T) {
	inner, err := NewPredictor(fixedClassifier{features: 1}, &LabelEncoder{Classes: trackClasses}, []string{"Q1"})
	require.NoError(t, err)
	got, err := NewCachingPredictor(inner, 0)
	require.NoError(t, err)
	assert.Same(t, inner, got)
}

func TestBundleRoundTrip(t *testing.T) {
	store := artifact.NewDirStore(t.TempDir())
	names := ArtifactNames{Model: "m.json", Encoder: "e.json", Features: "f.json"}
	bundle := &Bundle{
		Model:        trainSmall(t),
		Encoder:      &LabelEncoder{Classes: trackClasses},
		FeatureNames: featureNames(30),
	}
	ctx := context.Background()
	require.NoError(t, SaveBundle(ctx, store, names, bundle))

	loaded, err := LoadBundle(ctx, store, names)
	require.NoError(t, err)
	assert.Equal(t, bundle.Encoder.Classes, loaded.Encoder.Classes)
	assert.Equal(t, bundle.FeatureNames, loaded.FeatureNames)

	p, err := NewPredictorFromBundle(loaded)
	require.NoError(t, err)
	got, err := p.Predict(bioAnswers())
	require.NoError(t, err)
	assert.Equal(t, "bio", got.Track)
}

func TestLoadBundleFailures(t *testing.T) {
	ctx := context.Background()
	names := ArtifactNames{Model: "m.json", Encoder: "e.json", Features: "f.json"}

	store := artifact.NewDirStore(t.TempDir())
	_, err := LoadBundle(ctx, store, names)
	assert.True(t, errors.Is(err, artifact.ErrNotFound))

	bundle := &Bundle{Model: trainSmall(t), Encoder: &LabelEncoder{Classes: trackClasses}, FeatureNames: featureNames(30)}
	require.NoError(t, SaveBundle(ctx, store, names, bundle))
	require.NoError(t, store.Put(ctx, names.Features, []byte(`["Q1","Q2"]`)))
	_, err = LoadBundle(ctx, store, names)
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	require.NoError(t, store.Put(ctx, names.Model, []byte(`{"trees":`)))
	_, err = LoadBundle(ctx, store, names)
	assert.Error(t, err)
}
