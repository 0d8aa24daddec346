package ml

import (
	"fmt"
	"path/filepath"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

var renderFormats = map[string]graphviz.Format{
	"png": graphviz.PNG,
	"svg": graphviz.SVG,
	"jpg": graphviz.JPG,
}

// RenderTrees draws the first limit trees into dir as tree_<index>_<class>.<format>
// and returns the written paths. A limit of 0 or less draws every tree.
func (b *Booster) RenderTrees(dir, format string, limit int, featureNames, classes []string) ([]string, error) {
	gvFormat, ok := renderFormats[format]
	if !ok {
		return nil, fmt.Errorf("unsupported render format %q", format)
	}
	if limit <= 0 || limit > len(b.Trees) {
		limit = len(b.Trees)
	}

	paths := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		tree := &b.Trees[i]
		path := filepath.Join(dir, fmt.Sprintf("tree_%05d_%s.%s", i, className(classes, tree.Class), format))
		if err := tree.render(path, gvFormat, featureNames); err != nil {
			return paths, fmt.Errorf("render tree %d: %w", i, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (t *RegressionTree) render(path string, format graphviz.Format, featureNames []string) error {
	g := graphviz.New()
	defer g.Close()
	graph, err := g.Graph()
	if err != nil {
		return err
	}
	defer graph.Close()

	if err := t.drawNode(graph, 0, nil, featureNames); err != nil {
		return err
	}
	return g.RenderFilename(graph, format, path)
}

func (t *RegressionTree) drawNode(graph *cgraph.Graph, idx int, parent *cgraph.Node, featureNames []string) error {
	node := t.Nodes[idx]
	current, err := graph.CreateNode(fmt.Sprint(idx))
	if err != nil {
		return err
	}
	if parent != nil {
		if _, err := graph.CreateEdge("", parent, current); err != nil {
			return err
		}
	}

	if node.IsLeaf {
		current.Set("label", fmt.Sprintf("value = %.4f\ncover = %.2f", node.Value, node.Cover))
		current.Set("shape", "box")
		return nil
	}

	name := fmt.Sprintf("f%d", node.FeatureIdx)
	if node.FeatureIdx < len(featureNames) {
		name = featureNames[node.FeatureIdx]
	}
	missing := "right"
	if node.DefaultLeft {
		missing = "left"
	}
	current.Set("label", fmt.Sprintf("%s < %.4g\ngain = %.4f\nmissing: %s", name, node.Threshold, node.Gain, missing))

	if err := t.drawNode(graph, node.LeftChild, current, featureNames); err != nil {
		return err
	}
	return t.drawNode(graph, node.RightChild, current, featureNames)
}
