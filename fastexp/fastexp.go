// Package fastexp approximates exp with a table lookup on the float32 bit
// pattern. Results are within 1% of math.Exp. Inputs outside the documented
// ranges give undefined values; they are not checked.
package fastexp

import (
	"math"
	"sync"
)

const (
	bits         = 7
	mask1        = (1 << bits) - 1
	mask2        = 0xFF << bits
	logBase2OfE  = 1.44269504088896340736
	exponentBias = 127
)

// table holds the mantissa bits of 2^(i/128) for the 7-bit fraction i.
type table struct {
	exp1 [1 << bits]uint32
}

var (
	cache     *table
	cacheOnce sync.Once
)

func instance() *table {
	cacheOnce.Do(func() {
		t := &table{}
		for i := range t.exp1 {
			v := float32(math.Exp2(float64(i) / (1 << bits)))
			t.exp1[i] = math.Float32bits(v) & ((1 << 23) - 1)
		}
		cache = t
	})
	return cache
}

// VeryFastExp2 approximates 2^f for |f| <= 126.
func VeryFastExp2(f float32) float32 {
	// Adding 127 + 2^16 places the biased integer part of f in the upper
	// mantissa bits and its 7-bit fraction in the lowest ones.
	g := f + (exponentBias + (1 << (23 - bits)))
	x := math.Float32bits(g)
	ret := ((x & mask2) << (23 - bits)) | instance().exp1[x&mask1]
	return math.Float32frombits(ret)
}

// VeryFastExp approximates e^f for |f| <= 87.
func VeryFastExp(f float32) float32 {
	return VeryFastExp2(f * logBase2OfE)
}

// Softmax normalizes scores into probabilities. The maximum is subtracted
// first so every exponent stays in range.
func Softmax(scores []float32) []float32 {
	if len(scores) == 0 {
		return nil
	}
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	probs := make([]float32, len(scores))
	var sum float32
	for i, s := range scores {
		d := s - maxScore
		if d < -80 {
			probs[i] = 0
			continue
		}
		probs[i] = VeryFastExp(d)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
