package ml

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// FeatureImportance is the total split gain credited to one feature.
type FeatureImportance struct {
	Name       string
	Importance float64
}

// FeatureImportances returns the average split gain per feature, normalized to
// sum to 1 and sorted from most to least important. Unused features score 0.
func (b *Booster) FeatureImportances(names []string) []FeatureImportance {
	gainSum := make([]float64, b.NumFeatures)
	splits := make([]int, b.NumFeatures)
	for _, tree := range b.Trees {
		for _, node := range tree.Nodes {
			if node.IsLeaf {
				continue
			}
			gainSum[node.FeatureIdx] += node.Gain
			splits[node.FeatureIdx]++
		}
	}

	total := 0.0
	scores := make([]float64, b.NumFeatures)
	for f := range scores {
		if splits[f] > 0 {
			scores[f] = gainSum[f] / float64(splits[f])
			total += scores[f]
		}
	}

	out := make([]FeatureImportance, b.NumFeatures)
	for f := range out {
		name := fmt.Sprintf("f%d", f)
		if f < len(names) {
			name = names[f]
		}
		score := 0.0
		if total > 0 {
			score = scores[f] / total
		}
		out[f] = FeatureImportance{Name: name, Importance: score}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Importance > out[j].Importance
	})
	return out
}

// WriteImportanceChart draws a horizontal bar chart, the longest bar width
// characters wide.
func WriteImportanceChart(w io.Writer, items []FeatureImportance, width int) error {
	if width <= 0 {
		width = 50
	}
	nameWidth := len("Feature")
	maxScore := 0.0
	for _, item := range items {
		if len(item.Name) > nameWidth {
			nameWidth = len(item.Name)
		}
		if item.Importance > maxScore {
			maxScore = item.Importance
		}
	}

	if _, err := fmt.Fprintf(w, "Feature Importances\n%-*s | Importance\n", nameWidth, "Feature"); err != nil {
		return err
	}
	for _, item := range items {
		bar := 0
		if maxScore > 0 {
			bar = int(item.Importance / maxScore * float64(width))
		}
		if _, err := fmt.Fprintf(w, "%-*s | %s %.4f\n", nameWidth, item.Name, strings.Repeat("#", bar), item.Importance); err != nil {
			return err
		}
	}
	return nil
}
