package ml

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrNotTrained    = errors.New("model not trained")
	ErrShapeMismatch = errors.New("feature count mismatch")
)

// probabilities are clipped before taking logs
const logLossEpsilon = 1e-15

// BoosterParams are the boosting hyperparameters. Threads only affects speed.
type BoosterParams struct {
	Rounds         int     `json:"rounds"`
	MaxDepth       int     `json:"max_depth"`
	LearningRate   float64 `json:"learning_rate"`
	Lambda         float64 `json:"lambda"`
	Gamma          float64 `json:"gamma"`
	MinChildWeight float64 `json:"min_child_weight"`
	Threads        int     `json:"-"`
}

// DefaultBoosterParams uses every CPU. The other values match config.Default.
func DefaultBoosterParams() BoosterParams {
	return BoosterParams{
		Rounds:         200,
		MaxDepth:       6,
		LearningRate:   0.1,
		Lambda:         1,
		Gamma:          0,
		MinChildWeight: 1,
		Threads:        runtime.NumCPU(),
	}
}

// EvalSet is a named partition monitored during training.
type EvalSet struct {
	Name string
	X    *mat.Dense
	Y    []int
}

// LearningCurve holds one multiclass log-loss value per round and eval set.
type LearningCurve struct {
	Titles []string    `json:"titles"`
	Values [][]float64 `json:"values"`
}

// Booster is a softmax gradient-boosted tree ensemble: each round adds one
// regression tree per class and the predicted class is the argmax of the summed
// class margins. It is never mutated after TrainBooster returns.
type Booster struct {
	NumClass      int              `json:"num_class"`
	NumFeatures   int              `json:"num_features"`
	BaseScore     float64          `json:"base_score"`
	Params        BoosterParams    `json:"params"`
	Trees         []RegressionTree `json:"trees"`
	LearningCurve LearningCurve    `json:"learning_curve"`
}

// TrainBooster fits numClass-way softmax boosting on train. Every eval set is
// scored after each round and logged, as is common for boosting libraries.
func TrainBooster(params BoosterParams, train EvalSet, numClass int, evals []EvalSet, log *zap.Logger) (*Booster, error) {
	if log == nil {
		log = zap.NewNop()
	}
	rows, cols := train.X.Dims()
	if rows == 0 || len(train.Y) == 0 {
		return nil, errors.New("features or labels empty")
	}
	if rows != len(train.Y) {
		return nil, errors.New("features and labels size mismatch")
	}
	if numClass < 2 {
		return nil, fmt.Errorf("need at least 2 classes, got %d", numClass)
	}
	if params.Rounds <= 0 {
		return nil, errors.New("rounds must be positive")
	}
	if params.MaxDepth <= 0 {
		params.MaxDepth = 6
	}
	if params.Threads <= 0 {
		params.Threads = 1
	}
	for _, label := range train.Y {
		if label < 0 || label >= numClass {
			return nil, fmt.Errorf("label %d outside [0, %d)", label, numClass)
		}
	}
	for _, eval := range evals {
		evalRows, evalCols := eval.X.Dims()
		if evalCols != cols || evalRows != len(eval.Y) {
			return nil, fmt.Errorf("eval set %q has inconsistent shape", eval.Name)
		}
	}

	booster := &Booster{
		NumClass:    numClass,
		NumFeatures: cols,
		BaseScore:   0.5,
		Params:      params,
		Trees:       make([]RegressionTree, 0, params.Rounds*numClass),
	}
	for _, eval := range evals {
		booster.LearningCurve.Titles = append(booster.LearningCurve.Titles, eval.Name)
	}

	columns, root := presort(train.X)
	tp := treeParams{
		maxDepth:       params.MaxDepth,
		learningRate:   params.LearningRate,
		lambda:         params.Lambda,
		gamma:          params.Gamma,
		minChildWeight: params.MinChildWeight,
		threads:        params.Threads,
	}

	margins := filled(rows*numClass, booster.BaseScore)
	evalMargins := make([][]float64, len(evals))
	for i, eval := range evals {
		evalMargins[i] = filled(len(eval.Y)*numClass, booster.BaseScore)
	}

	probs := make([]float64, rows*numClass)
	grad := make([]float64, rows)
	hess := make([]float64, rows)

	for round := 0; round < params.Rounds; round++ {
		for i := 0; i < rows; i++ {
			softmaxInto(probs[i*numClass:(i+1)*numClass], margins[i*numClass:(i+1)*numClass])
		}

		for class := 0; class < numClass; class++ {
			for i := 0; i < rows; i++ {
				p := probs[i*numClass+class]
				y := 0.0
				if train.Y[i] == class {
					y = 1
				}
				grad[i] = p - y
				hess[i] = math.Max(2*p*(1-p), 1e-16)
			}

			builder := newTreeBuilder(columns, grad, hess, tp)
			builder.build(root, 0)
			tree := RegressionTree{Class: class, Nodes: builder.nodes}
			booster.Trees = append(booster.Trees, tree)

			for i := 0; i < rows; i++ {
				margins[i*numClass+class] += builder.leafValues[i]
			}
			for e, eval := range evals {
				for i := range eval.Y {
					evalMargins[e][i*numClass+class] += tree.Predict(eval.X.RawRowView(i))
				}
			}
		}

		if len(evals) == 0 {
			continue
		}
		row := make([]float64, len(evals))
		fields := make([]zap.Field, 0, len(evals)+1)
		fields = append(fields, zap.Int("round", round))
		for e, eval := range evals {
			row[e] = multiLogLoss(evalMargins[e], eval.Y, numClass)
			fields = append(fields, zap.Float64(eval.Name+"-mlogloss", row[e]))
		}
		booster.LearningCurve.Values = append(booster.LearningCurve.Values, row)
		log.Info("boosting round", fields...)
	}

	return booster, nil
}

// presort returns column-major copies of x and the root sample set, each
// feature's present rows ordered by value (ties keep row order).
func presort(x *mat.Dense) ([][]float64, nodeSamples) {
	rows, cols := x.Dims()
	columns := make([][]float64, cols)
	root := nodeSamples{rows: make([]int, rows), sorted: make([][]int, cols)}
	for i := range root.rows {
		root.rows[i] = i
	}
	for f := 0; f < cols; f++ {
		column := mat.Col(nil, f, x)
		columns[f] = column
		order := make([]int, 0, rows)
		for i, v := range column {
			if !math.IsNaN(v) {
				order = append(order, i)
			}
		}
		sort.SliceStable(order, func(a, b int) bool {
			return column[order[a]] < column[order[b]]
		})
		root.sorted[f] = order
	}
	return columns, root
}

func filled(n int, value float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func softmaxInto(dst, margins []float64) {
	maxMargin := math.Inf(-1)
	for _, m := range margins {
		maxMargin = math.Max(maxMargin, m)
	}
	sum := 0.0
	for k, m := range margins {
		dst[k] = math.Exp(m - maxMargin)
		sum += dst[k]
	}
	for k := range dst {
		dst[k] /= sum
	}
}

func multiLogLoss(margins []float64, labels []int, numClass int) float64 {
	if len(labels) == 0 {
		return 0
	}
	probs := make([]float64, numClass)
	total := 0.0
	for i, label := range labels {
		softmaxInto(probs, margins[i*numClass:(i+1)*numClass])
		p := math.Min(math.Max(probs[label], logLossEpsilon), 1-logLossEpsilon)
		total -= math.Log(p)
	}
	return total / float64(len(labels))
}

// PredictMargins returns the raw per-class scores for one row.
func (b *Booster) PredictMargins(features []float64) ([]float64, error) {
	if len(b.Trees) == 0 {
		return nil, ErrNotTrained
	}
	if len(features) != b.NumFeatures {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrShapeMismatch, b.NumFeatures, len(features))
	}
	margins := filled(b.NumClass, b.BaseScore)
	for i := range b.Trees {
		tree := &b.Trees[i]
		margins[tree.Class] += tree.Predict(features)
	}
	return margins, nil
}

// PredictProba returns softmax class probabilities for one row.
func (b *Booster) PredictProba(features []float64) ([]float64, error) {
	margins, err := b.PredictMargins(features)
	if err != nil {
		return nil, err
	}
	probs := make([]float64, len(margins))
	softmaxInto(probs, margins)
	return probs, nil
}

// PredictClass returns the argmax class id; the first maximum wins ties.
func (b *Booster) PredictClass(features []float64) (int, error) {
	margins, err := b.PredictMargins(features)
	if err != nil {
		return 0, err
	}
	best := 0
	for k := 1; k < len(margins); k++ {
		if margins[k] > margins[best] {
			best = k
		}
	}
	return best, nil
}

func (b *Booster) FeatureCount() int {
	return b.NumFeatures
}

// Validate checks a decoded booster before it is used for inference.
func (b *Booster) Validate() error {
	if len(b.Trees) == 0 {
		return ErrNotTrained
	}
	if b.NumClass < 2 {
		return fmt.Errorf("invalid class count %d", b.NumClass)
	}
	if b.NumFeatures <= 0 {
		return fmt.Errorf("invalid feature count %d", b.NumFeatures)
	}
	for i := range b.Trees {
		tree := &b.Trees[i]
		if tree.Class < 0 || tree.Class >= b.NumClass {
			return fmt.Errorf("tree %d: class %d out of range", i, tree.Class)
		}
		if err := tree.Validate(b.NumFeatures); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

// MarshalBinary encodes a trained booster as JSON.
func (b *Booster) MarshalBinary() ([]byte, error) {
	if len(b.Trees) == 0 {
		return nil, ErrNotTrained
	}
	return json.Marshal(b)
}

// UnmarshalBinary decodes and validates a booster. b is left untouched on error.
func (b *Booster) UnmarshalBinary(payload []byte) error {
	var decoded Booster
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return err
	}
	if err := decoded.Validate(); err != nil {
		return err
	}
	*b = decoded
	return nil
}
