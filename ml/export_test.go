package ml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestExportNpy(t *testing.T) {
	dir := t.TempDir()
	x, y := trackBlobs(2, 5)
	require.NoError(t, ExportNpy(dir, "train", x, y))

	gotX, err := ReadNpy(filepath.Join(dir, "train_x.npy"))
	require.NoError(t, err)
	assert.True(t, mat.Equal(x, gotX))

	gotY, err := ReadNpy(filepath.Join(dir, "train_y.npy"))
	require.NoError(t, err)
	rows, cols := gotY.Dims()
	assert.Equal(t, len(y), rows)
	assert.Equal(t, 1, cols)
	for i, label := range y {
		assert.Equal(t, float64(label), gotY.At(i, 0))
	}
}

func TestRenderTrees(t *testing.T) {
	booster := trainSmall(t)
	dir := t.TempDir()

	paths, err := booster.RenderTrees(dir, "svg", 2, featureNames(30), trackClasses)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "tree_00000_bio.svg"), paths[0])
	for _, path := range paths {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}

	_, err = booster.RenderTrees(dir, "bmp", 1, nil, nil)
	assert.Error(t, err)
}
