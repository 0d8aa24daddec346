package ml

import (
	"errors"
	"fmt"
	"math"
)

// RegressionTree is one boosting stage for one class. Nodes are stored in
// pre-order, the root at index 0, children always after their parent.
type RegressionTree struct {
	Class int        `json:"class"`
	Nodes []TreeNode `json:"nodes"`
}

// TreeNode is one node of a regression tree. Leaves have no children.
type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	// DefaultLeft routes missing values left.
	DefaultLeft bool    `json:"default_left,omitempty"`
	IsLeaf      bool    `json:"is_leaf"`
	Value       float64 `json:"value"`
	Gain        float64 `json:"gain,omitempty"`
	Cover       float64 `json:"cover"`
}

// Predict returns the leaf value reached by features. The tree must be valid.
func (t *RegressionTree) Predict(features []float64) float64 {
	return t.Nodes[t.leaf(features)].Value
}

func (t *RegressionTree) leaf(features []float64) int {
	idx := 0
	for {
		node := &t.Nodes[idx]
		if node.IsLeaf {
			return idx
		}
		if goesLeft(features[node.FeatureIdx], node.Threshold, node.DefaultLeft) {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
}

func goesLeft(value, threshold float64, defaultLeft bool) bool {
	if math.IsNaN(value) {
		return defaultLeft
	}
	return value < threshold
}

// Depth returns the number of edges on the longest root-to-leaf path.
func (t *RegressionTree) Depth() int {
	var walk func(idx int) int
	walk = func(idx int) int {
		node := t.Nodes[idx]
		if node.IsLeaf {
			return 0
		}
		left, right := walk(node.LeftChild), walk(node.RightChild)
		if left > right {
			return left + 1
		}
		return right + 1
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return walk(0)
}

// Validate checks node links so that Predict terminates and never indexes out
// of range for a row of numFeatures values.
func (t *RegressionTree) Validate(numFeatures int) error {
	if len(t.Nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	for i, node := range t.Nodes {
		if node.IsLeaf {
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= numFeatures {
			return fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		for _, child := range []int{node.LeftChild, node.RightChild} {
			if child <= i || child >= len(t.Nodes) {
				return fmt.Errorf("node %d: invalid child %d", i, child)
			}
		}
	}
	return nil
}
