package http

import (
	"context"
	"math/rand"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"trackrec/artifact"
	"trackrec/ml"
)

// trainedRouter trains a small booster on separable answers, round-trips it
// through a directory store and serves it.
func trainedRouter(t *testing.T) http.Handler {
	t.Helper()
	rnd := rand.New(rand.NewSource(3))
	const perClass, features = 20, 30
	x := mat.NewDense(perClass*len(trackClasses), features, nil)
	y := make([]int, perClass*len(trackClasses))
	for i := range y {
		y[i] = i % len(trackClasses)
		for f := 0; f < features; f++ {
			v := rnd.Float64() * 0.4
			if f/10 == y[i] {
				v += 0.6
			}
			x.Set(i, f, v)
		}
	}

	params := ml.DefaultBoosterParams()
	params.Rounds = 10
	params.MaxDepth = 3
	params.Threads = 2
	booster, err := ml.TrainBooster(params, ml.EvalSet{Name: "train", X: x, Y: y}, len(trackClasses), nil, nil)
	require.NoError(t, err)

	ctx := context.Background()
	store := artifact.NewDirStore(t.TempDir())
	names := ml.ArtifactNames{Model: "track_model.pkl", Encoder: "track_label_encoder.pkl", Features: "track_feature_names.pkl"}
	bundle := &ml.Bundle{Model: booster, Encoder: &ml.LabelEncoder{Classes: trackClasses}, FeatureNames: featureNames()}
	require.NoError(t, ml.SaveBundle(ctx, store, names, bundle))

	loaded, err := ml.LoadBundle(ctx, store, names)
	require.NoError(t, err)
	predictor, err := ml.NewPredictorFromBundle(loaded)
	require.NoError(t, err)
	return NewRouter(DefaultServerConfig(), predictor, zap.NewNop())
}

func TestTrainedModelServesAllZeroAnswers(t *testing.T) {
	router := trainedRouter(t)

	w := do(router, http.MethodPost, "/predict", answersBody(repeat("0", 30)...))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	payload := decode(t, w)
	require.Len(t, payload, 1)
	assert.Contains(t, append([]string{ml.UnknownTrack}, trackClasses...), payload["track"])

	again := do(router, http.MethodPost, "/predict", answersBody(repeat("0", 30)...))
	assert.Equal(t, w.Body.String(), again.Body.String())
}

func TestTrainedModelPredictsSeparableAnswers(t *testing.T) {
	router := trainedRouter(t)

	w := do(router, http.MethodPost, "/predict", bioBody())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "bio", decode(t, w)["track"])

	tech := answersBody(append(repeat("0", 20), repeat("1", 10)...)...)
	w = do(router, http.MethodPost, "/predict", tech)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "tech", decode(t, w)["track"])
}

func TestTrainedModelRejectsShortAnswers(t *testing.T) {
	router := trainedRouter(t)

	w := do(router, http.MethodPost, "/predict", answersBody(repeat("0", 29)...))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	payload := decode(t, w)
	assert.NotContains(t, payload, "track")
	require.IsType(t, "", payload["error"])
	assert.Contains(t, payload["error"], "expected 30 answers, got 29")
}
