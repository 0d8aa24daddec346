package ml

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownLabel reports a label or class id the encoder was not fitted on.
var ErrUnknownLabel = errors.New("label not seen during fit")

// LabelEncoder maps the distinct target strings to contiguous ids [0, K).
// Classes are kept sorted, so id i is Classes[i].
type LabelEncoder struct {
	Classes []string `json:"classes"`
}

// FitLabelEncoder builds an encoder over labels.
func FitLabelEncoder(labels []string) (*LabelEncoder, error) {
	if len(labels) == 0 {
		return nil, errors.New("labels empty")
	}
	seen := make(map[string]struct{})
	classes := make([]string, 0)
	for _, label := range labels {
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		classes = append(classes, label)
	}
	sort.Strings(classes)
	return &LabelEncoder{Classes: classes}, nil
}

func (e *LabelEncoder) NumClasses() int {
	return len(e.Classes)
}

// Transform maps labels to class ids.
func (e *LabelEncoder) Transform(labels []string) ([]int, error) {
	index := make(map[string]int, len(e.Classes))
	for i, class := range e.Classes {
		index[class] = i
	}
	ids := make([]int, len(labels))
	for i, label := range labels {
		id, ok := index[label]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
		}
		ids[i] = id
	}
	return ids, nil
}

// InverseTransform maps class ids back to labels.
func (e *LabelEncoder) InverseTransform(ids []int) ([]string, error) {
	labels := make([]string, len(ids))
	for i, id := range ids {
		label, ok := e.Label(id)
		if !ok {
			return nil, fmt.Errorf("%w: class id %d", ErrUnknownLabel, id)
		}
		labels[i] = label
	}
	return labels, nil
}

// Label returns the class string for id, false when id is out of range.
func (e *LabelEncoder) Label(id int) (string, bool) {
	if id < 0 || id >= len(e.Classes) {
		return "", false
	}
	return e.Classes[id], true
}
