package ml

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

var trackClasses = []string{"bio", "design", "tech"}

// trackBlobs builds 30-answer rows where class c scores high on answers
// [10c, 10c+10) and low elsewhere.
func trackBlobs(perClass int, seed int64) (*mat.Dense, []int) {
	rnd := rand.New(rand.NewSource(seed))
	const features = 30
	rows := perClass * len(trackClasses)
	x := mat.NewDense(rows, features, nil)
	y := make([]int, rows)
	for i := 0; i < rows; i++ {
		class := i % len(trackClasses)
		y[i] = class
		for f := 0; f < features; f++ {
			v := rnd.Float64() * 0.4
			if f/10 == class {
				v += 0.6
			}
			x.Set(i, f, v)
		}
	}
	return x, y
}

func featureNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = "Q" + string(rune('A'+i/10)) + string(rune('0'+i%10))
	}
	return names
}

func bioAnswers() []float64 {
	answers := make([]float64, 30)
	for i := 0; i < 10; i++ {
		answers[i] = 1
	}
	return answers
}

func smallParams() BoosterParams {
	params := DefaultBoosterParams()
	params.Rounds = 10
	params.MaxDepth = 3
	params.Threads = 2
	return params
}

func trainSmall(t interface{ Fatalf(string, ...any) }) *Booster {
	x, y := trackBlobs(20, 7)
	booster, err := TrainBooster(smallParams(), EvalSet{Name: "train", X: x, Y: y}, 3, nil, nil)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	return booster
}
