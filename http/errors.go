package http

import (
	"errors"
	"net/http"
)

// ErrInvalidAnswers is returned verbatim to clients whose body has no answers list.
var ErrInvalidAnswers = errors.New("Invalid input format. 'answers' should be a list.")

// ErrorKind classifies a failed prediction request. The HTTP status depends on
// the kind alone.
type ErrorKind int

const (
	// KindInvalidInput means the request was rejected before touching the model.
	KindInvalidInput ErrorKind = iota + 1
	// KindPrediction means conversion or inference failed.
	KindPrediction
)

// String returns the metric label of k.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindPrediction:
		return "prediction"
	default:
		return "unknown"
	}
}

// Status maps k to the response code: 400 for invalid input, 500 otherwise.
func (k ErrorKind) Status() int {
	if k == KindInvalidInput {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// PredictError is a failed /predict request. Its message is sent to the
// client as the "error" field.
type PredictError struct {
	Kind ErrorKind
	Err  error
}

func (e *PredictError) Error() string {
	return e.Err.Error()
}

func (e *PredictError) Unwrap() error {
	return e.Err
}

func invalidInput() *PredictError {
	return &PredictError{Kind: KindInvalidInput, Err: ErrInvalidAnswers}
}

func predictionFailed(err error) *PredictError {
	return &PredictError{Kind: KindPrediction, Err: err}
}
