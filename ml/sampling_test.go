package ml

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestRandomOverSampleBalancesClasses(t *testing.T) {
	x := mat.NewDense(6, 2, []float64{
		0, 0,
		1, 1,
		2, 2,
		3, 3,
		10, 10,
		20, 20,
	})
	y := []int{0, 0, 0, 0, 1, 2}

	balanced, labels, err := RandomOverSample(x, y, 42)
	require.NoError(t, err)

	rows, cols := balanced.Dims()
	assert.Equal(t, 12, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, y, labels[:6], "original rows come first")
	assert.True(t, mat.Equal(x, balanced.Slice(0, 6, 0, 2)))

	counts := map[int]int{}
	for _, label := range labels {
		counts[label]++
	}
	assert.Equal(t, map[int]int{0: 4, 1: 4, 2: 4}, counts)

	// appended rows are class 1 then class 2 and copy a row of their class
	assert.Equal(t, []int{1, 1, 1, 2, 2, 2}, labels[6:])
	for i := 6; i < rows; i++ {
		want := 10.0
		if labels[i] == 2 {
			want = 20
		}
		assert.Equal(t, want, balanced.At(i, 0))
	}
}

func TestRandomOverSampleDeterministic(t *testing.T) {
	x, y := trackBlobs(5, 1)
	y = append(y[:12], 0, 0, 0)

	a, la, err := RandomOverSample(x, y, 42)
	require.NoError(t, err)
	b, lb, err := RandomOverSample(x, y, 42)
	require.NoError(t, err)
	assert.True(t, mat.Equal(a, b))
	assert.Equal(t, la, lb)
}

func TestRandomOverSampleErrors(t *testing.T) {
	_, _, err := RandomOverSample(mat.NewDense(2, 1, nil), []int{0}, 1)
	assert.Error(t, err)
}

func TestTrainTestSplit(t *testing.T) {
	n := 11
	x := mat.NewDense(n, 1, nil)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		x.Set(i, 0, float64(i))
		y[i] = i
	}

	trainX, trainY, testX, testY, err := TrainTestSplit(x, y, 0.2, 42)
	require.NoError(t, err)

	wantTest := int(math.Ceil(0.2 * float64(n)))
	assert.Len(t, testY, wantTest)
	assert.Len(t, trainY, n-wantTest)

	seen := append(append([]int{}, trainY...), testY...)
	sort.Ints(seen)
	assert.Equal(t, y, seen, "split must partition the rows")

	for i, label := range trainY {
		assert.Equal(t, float64(label), trainX.At(i, 0))
	}
	for i, label := range testY {
		assert.Equal(t, float64(label), testX.At(i, 0))
	}

	_, againY, _, _, err := TrainTestSplit(x, y, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, trainY, againY)
}

func TestTrainTestSplitTooSmall(t *testing.T) {
	_, _, _, _, err := TrainTestSplit(mat.NewDense(1, 1, nil), []int{0}, 0.2, 42)
	assert.Error(t, err)
}
