package http

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"trackrec/ml"
	"trackrec/monitoring"
)

type errorResponse struct {
	Error string `json:"error"`
}

type predictResponse struct {
	Track string `json:"track"`
}

type featuresResponse struct {
	Features []string `json:"features"`
}

type predictHandler struct {
	predictor ml.TrackPredictor
	log       *zap.Logger
	debug     bool
}

func newPredictHandler(predictor ml.TrackPredictor, log *zap.Logger, debug bool) *predictHandler {
	return &predictHandler{predictor: predictor, log: log, debug: debug}
}

// RegisterHandlers mounts /predict, /health, /features and /metrics on r.
func RegisterHandlers(r chi.Router, h *predictHandler) {
	r.Post("/predict", h.handlePredict)
	r.Get("/health", handleHealth)
	r.Get("/features", h.handleFeatures)
	r.Method(http.MethodGet, "/metrics", monitoring.Handler())
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (h *predictHandler) handleFeatures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, featuresResponse{Features: h.predictor.FeatureNames()})
}

func (h *predictHandler) handlePredict(w http.ResponseWriter, r *http.Request) {
	track, err := h.predict(r)
	if err != nil {
		monitoring.RecordPredictionError(err.Kind.String())
		if err.Kind == KindPrediction {
			h.log.Error("prediction failed", zap.Error(err))
		}
		writeJSON(w, err.Kind.Status(), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, predictResponse{Track: track})
}

func (h *predictHandler) predict(r *http.Request) (string, *PredictError) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", invalidInput()
	}
	answers, perr := parseAnswers(body)
	if perr != nil {
		return "", perr
	}

	if h.debug {
		h.logAnswers(answers)
	}

	prediction, err := h.predictor.Predict(answers)
	if err != nil {
		return "", predictionFailed(err)
	}
	monitoring.RecordPrediction(prediction.Track, prediction.Known)
	if !prediction.Known {
		h.log.Warn("model returned a class without a label", zap.Int("class_id", prediction.ClassID))
	}
	if h.debug {
		h.log.Debug("predicted", zap.Int("class_id", prediction.ClassID), zap.String("track", prediction.Track))
	}
	return prediction.Track, nil
}

// parseAnswers extracts the answers list. A body that is not an object with an
// answers array is invalid input; an element that is neither a number nor null
// fails conversion.
func parseAnswers(body []byte) ([]float64, *PredictError) {
	var request map[string]json.RawMessage
	if err := json.Unmarshal(body, &request); err != nil || request == nil {
		return nil, invalidInput()
	}
	raw, ok := request["answers"]
	if !ok {
		return nil, invalidInput()
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, invalidInput()
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, invalidInput()
	}
	answers := make([]float64, len(elements))
	for i, element := range elements {
		element = bytes.TrimSpace(element)
		if bytes.Equal(element, []byte("null")) {
			answers[i] = math.NaN()
			continue
		}
		if err := json.Unmarshal(element, &answers[i]); err != nil {
			return nil, predictionFailed(fmt.Errorf("answer %d: %s is not a number", i, element))
		}
	}
	return answers, nil
}

func (h *predictHandler) logAnswers(answers []float64) {
	names := h.predictor.FeatureNames()
	fields := make([]zap.Field, 0, len(answers))
	for i, value := range answers {
		name := fmt.Sprintf("answer_%d", i)
		if i < len(names) {
			name = names[i]
		}
		fields = append(fields, zap.Float64(name, value))
	}
	h.log.Debug("received answers", fields...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		payload = []byte(`{"error":"internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}
