// Package monitoring exposes the predictor service's Prometheus metrics.
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackrec_predictions_total",
			Help: "Total number of successful predictions by track",
		},
		[]string{"track"},
	)

	PredictionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trackrec_prediction_errors_total",
			Help: "Total number of rejected or failed prediction requests",
		},
		[]string{"kind"}, // "invalid_input", "prediction"
	)

	UnknownTracks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "trackrec_unknown_tracks_total",
			Help: "Predictions whose class id had no label",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trackrec_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	ModelInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trackrec_model_info",
			Help: "Shape of the loaded model, always 1",
		},
		[]string{"features", "classes", "trees"},
	)
)

// RecordPrediction counts a successful prediction.
func RecordPrediction(track string, known bool) {
	PredictionsTotal.WithLabelValues(track).Inc()
	if !known {
		UnknownTracks.Inc()
	}
}

// RecordPredictionError counts a failed request by error kind.
func RecordPredictionError(kind string) {
	PredictionErrors.WithLabelValues(kind).Inc()
}

// RecordHTTPRequest records one served request. route is the matched pattern,
// not the raw path, to keep label cardinality bounded.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// SetModelInfo publishes the shape of the loaded model, replacing any
// previously published shape.
func SetModelInfo(features, classes, trees int) {
	ModelInfo.Reset()
	ModelInfo.WithLabelValues(strconv.Itoa(features), strconv.Itoa(classes), strconv.Itoa(trees)).Set(1)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
