package ml

import (
	"sync"
)

// minSplitGain is the smallest loss reduction accepted for a split.
const minSplitGain = 1e-6

type treeParams struct {
	maxDepth       int
	learningRate   float64
	lambda         float64
	gamma          float64
	minChildWeight float64
	threads        int
}

// nodeSamples holds the rows reaching a node. sorted[f] lists the rows with a
// present value of feature f, ordered by that value.
type nodeSamples struct {
	rows   []int
	sorted [][]int
}

type splitCandidate struct {
	feature     int
	threshold   float64
	gain        float64
	defaultLeft bool
	valid       bool
}

// treeBuilder grows one regression tree on second order gradient statistics.
type treeBuilder struct {
	columns    [][]float64
	grad, hess []float64
	params     treeParams

	nodes      []TreeNode
	leafValues []float64
	left       []bool
}

func newTreeBuilder(columns [][]float64, grad, hess []float64, params treeParams) *treeBuilder {
	return &treeBuilder{
		columns:    columns,
		grad:       grad,
		hess:       hess,
		params:     params,
		leafValues: make([]float64, len(grad)),
		left:       make([]bool, len(grad)),
	}
}

func (b *treeBuilder) build(s nodeSamples, depth int) int {
	id := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{FeatureIdx: -1, LeftChild: -1, RightChild: -1})

	sumGrad, sumHess := b.sums(s.rows)
	if depth < b.params.maxDepth && len(s.rows) > 1 {
		if split, ok := b.findBestSplit(s, sumGrad, sumHess); ok {
			leftSamples, rightSamples := b.partition(s, split)
			if len(leftSamples.rows) > 0 && len(rightSamples.rows) > 0 {
				b.nodes[id] = TreeNode{
					FeatureIdx:  split.feature,
					Threshold:   split.threshold,
					DefaultLeft: split.defaultLeft,
					Gain:        split.gain,
					Cover:       sumHess,
				}
				leftID := b.build(leftSamples, depth+1)
				rightID := b.build(rightSamples, depth+1)
				b.nodes[id].LeftChild = leftID
				b.nodes[id].RightChild = rightID
				return id
			}
		}
	}

	value := -sumGrad / (sumHess + b.params.lambda) * b.params.learningRate
	b.nodes[id] = TreeNode{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		IsLeaf:     true,
		Value:      value,
		Cover:      sumHess,
	}
	for _, row := range s.rows {
		b.leafValues[row] = value
	}
	return id
}

func (b *treeBuilder) sums(rows []int) (float64, float64) {
	var g, h float64
	for _, row := range rows {
		g += b.grad[row]
		h += b.hess[row]
	}
	return g, h
}

// findBestSplit scans every feature, in parallel when threads > 1, and keeps
// the highest gain. Ties go to the lower feature index.
func (b *treeBuilder) findBestSplit(s nodeSamples, sumGrad, sumHess float64) (splitCandidate, bool) {
	featureCount := len(b.columns)
	results := make([]splitCandidate, featureCount)

	workers := b.params.threads
	if workers > featureCount {
		workers = featureCount
	}
	if workers <= 1 {
		for f := 0; f < featureCount; f++ {
			results[f] = b.scanFeature(s, f, sumGrad, sumHess)
		}
	} else {
		features := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for f := range features {
					results[f] = b.scanFeature(s, f, sumGrad, sumHess)
				}
			}()
		}
		for f := 0; f < featureCount; f++ {
			features <- f
		}
		close(features)
		wg.Wait()
	}

	best := splitCandidate{}
	for _, candidate := range results {
		if candidate.valid && (!best.valid || candidate.gain > best.gain) {
			best = candidate
		}
	}
	return best, best.valid
}

// scanFeature sweeps the sorted values of feature f once. Rows with a missing
// value are tried on both sides and the better side becomes the default.
func (b *treeBuilder) scanFeature(s nodeSamples, f int, sumGrad, sumHess float64) splitCandidate {
	order := s.sorted[f]
	best := splitCandidate{feature: f}
	if len(order) < 2 {
		return best
	}
	column := b.columns[f]

	presentGrad, presentHess := b.sums(order)
	missingGrad := sumGrad - presentGrad
	missingHess := sumHess - presentHess
	hasMissing := len(order) < len(s.rows)
	parentScore := sumGrad * sumGrad / (sumHess + b.params.lambda)

	var leftGrad, leftHess float64
	for i := 0; i < len(order)-1; i++ {
		row := order[i]
		leftGrad += b.grad[row]
		leftHess += b.hess[row]

		value, next := column[row], column[order[i+1]]
		if value == next {
			continue
		}
		threshold := value + (next-value)/2
		if threshold <= value {
			threshold = next
		}

		b.consider(&best, leftGrad, leftHess, sumGrad-leftGrad, sumHess-leftHess, parentScore, threshold, false)
		if hasMissing {
			b.consider(&best,
				leftGrad+missingGrad, leftHess+missingHess,
				sumGrad-leftGrad-missingGrad, sumHess-leftHess-missingHess,
				parentScore, threshold, true)
		}
	}
	return best
}

func (b *treeBuilder) consider(best *splitCandidate, leftGrad, leftHess, rightGrad, rightHess, parentScore, threshold float64, defaultLeft bool) {
	if leftHess < b.params.minChildWeight || rightHess < b.params.minChildWeight {
		return
	}
	lambda := b.params.lambda
	gain := 0.5*(leftGrad*leftGrad/(leftHess+lambda)+rightGrad*rightGrad/(rightHess+lambda)-parentScore) - b.params.gamma
	if gain <= minSplitGain {
		return
	}
	if best.valid && gain <= best.gain {
		return
	}
	best.threshold = threshold
	best.gain = gain
	best.defaultLeft = defaultLeft
	best.valid = true
}

// partition routes the node rows through split, keeping every per-feature
// ordering intact so children need no re-sorting.
func (b *treeBuilder) partition(s nodeSamples, split splitCandidate) (nodeSamples, nodeSamples) {
	column := b.columns[split.feature]
	var left, right nodeSamples
	for _, row := range s.rows {
		isLeft := goesLeft(column[row], split.threshold, split.defaultLeft)
		b.left[row] = isLeft
		if isLeft {
			left.rows = append(left.rows, row)
		} else {
			right.rows = append(right.rows, row)
		}
	}

	left.sorted = make([][]int, len(s.sorted))
	right.sorted = make([][]int, len(s.sorted))
	for f, order := range s.sorted {
		l := make([]int, 0, len(left.rows))
		r := make([]int, 0, len(right.rows))
		for _, row := range order {
			if b.left[row] {
				l = append(l, row)
			} else {
				r = append(r, row)
			}
		}
		left.sorted[f] = l
		right.sorted[f] = r
	}
	return left, right
}
