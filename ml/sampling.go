package ml

import (
	"errors"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// RandomOverSample balances classes by appending rows drawn with replacement from
// every class below the majority count. Original rows come first, then the drawn
// rows class by class in ascending id order.
func RandomOverSample(features *mat.Dense, labels []int, seed int64) (*mat.Dense, []int, error) {
	rows, cols := features.Dims()
	if rows == 0 || len(labels) == 0 {
		return nil, nil, errors.New("features or labels empty")
	}
	if rows != len(labels) {
		return nil, nil, errors.New("features and labels size mismatch")
	}

	members := make(map[int][]int)
	for i, label := range labels {
		members[label] = append(members[label], i)
	}
	classes := make([]int, 0, len(members))
	majority := 0
	for class, idx := range members {
		classes = append(classes, class)
		if len(idx) > majority {
			majority = len(idx)
		}
	}
	sort.Ints(classes)

	rnd := rand.New(rand.NewSource(seed))
	picked := make([]int, 0)
	for _, class := range classes {
		idx := members[class]
		for n := len(idx); n < majority; n++ {
			picked = append(picked, idx[rnd.Intn(len(idx))])
		}
	}

	total := rows + len(picked)
	balanced := mat.NewDense(total, cols, nil)
	balanced.Slice(0, rows, 0, cols).(*mat.Dense).Copy(features)
	outLabels := make([]int, total)
	copy(outLabels, labels)
	for k, src := range picked {
		balanced.SetRow(rows+k, features.RawRowView(src))
		outLabels[rows+k] = labels[src]
	}
	return balanced, outLabels, nil
}

// TrainTestSplit shuffles rows with seed and holds out ceil(testRatio*n) of them.
func TrainTestSplit(features *mat.Dense, labels []int, testRatio float64, seed int64) (trainX *mat.Dense, trainY []int, testX *mat.Dense, testY []int, err error) {
	rows, _ := features.Dims()
	if rows != len(labels) {
		return nil, nil, nil, nil, errors.New("features and labels size mismatch")
	}
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}
	nTest := int(math.Ceil(testRatio * float64(rows)))
	if nTest < 1 || nTest >= rows {
		return nil, nil, nil, nil, errors.New("not enough rows to split")
	}

	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(rows)

	testX, testY = takeRows(features, labels, indices[:nTest])
	trainX, trainY = takeRows(features, labels, indices[nTest:])
	return trainX, trainY, testX, testY, nil
}

func takeRows(features *mat.Dense, labels []int, indices []int) (*mat.Dense, []int) {
	_, cols := features.Dims()
	out := mat.NewDense(len(indices), cols, nil)
	outLabels := make([]int, len(indices))
	for i, idx := range indices {
		out.SetRow(i, features.RawRowView(idx))
		outLabels[i] = labels[idx]
	}
	return out, outLabels
}
