package ml

import (
	"encoding/binary"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/twmb/murmur3"
)

type cacheKey [2]uint64

type cachedPrediction struct {
	answers    []float64
	prediction Prediction
}

// CachingPredictor memoizes successful predictions of an immutable predictor.
// Entries keep their answer vector so a hash collision is a miss, not a wrong
// answer.
type CachingPredictor struct {
	next  TrackPredictor
	cache *lru.Cache[cacheKey, cachedPrediction]
}

// NewCachingPredictor returns next unchanged when size is 0.
func NewCachingPredictor(next TrackPredictor, size int) (TrackPredictor, error) {
	if size <= 0 {
		return next, nil
	}
	cache, err := lru.New[cacheKey, cachedPrediction](size)
	if err != nil {
		return nil, err
	}
	return &CachingPredictor{next: next, cache: cache}, nil
}

func (c *CachingPredictor) Predict(answers []float64) (Prediction, error) {
	key := hashAnswers(answers)
	if entry, ok := c.cache.Get(key); ok && sameBits(entry.answers, answers) {
		return entry.prediction, nil
	}
	prediction, err := c.next.Predict(answers)
	if err != nil {
		return Prediction{}, err
	}
	c.cache.Add(key, cachedPrediction{
		answers:    append([]float64(nil), answers...),
		prediction: prediction,
	})
	return prediction, nil
}

func (c *CachingPredictor) FeatureNames() []string {
	return c.next.FeatureNames()
}

// Len reports the number of memoized vectors.
func (c *CachingPredictor) Len() int {
	return c.cache.Len()
}

func hashAnswers(answers []float64) cacheKey {
	buf := make([]byte, 8*len(answers))
	for i, v := range answers {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	h1, h2 := murmur3.Sum128(buf)
	return cacheKey{h1, h2}
}

// sameBits compares bit patterns, so NaN answers match each other.
func sameBits(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Float64bits(a[i]) != math.Float64bits(b[i]) {
			return false
		}
	}
	return true
}
