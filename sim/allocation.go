package sim

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// fractionQuantum is the resolution at which fractional packet shares are
// compared, so ties between equal shares are broken by entity index rather
// than by rounding noise.
const fractionQuantum = 1e9

// Allocation is the distribution of a block of history indices over entities.
type Allocation struct {
	Bias  float64
	First int
	Num   int
	// Wv holds the normalized launch weight of every entity.
	Wv []float64
	// Iv holds M+1 cumulative history index boundaries: entity m owns
	// [Iv[m], Iv[m+1]).
	Iv []int
}

// Count returns the number of history indices assigned to entity m.
func (a *Allocation) Count(m int) int { return a.Iv[m+1] - a.Iv[m] }

// Entity returns the entity owning history index h, which must lie in
// [First, First+Num).
func (a *Allocation) Entity(h int) int {
	return sort.Search(len(a.Wv), func(i int) bool { return a.Iv[i+1] > h })
}

// PrepareForLaunch assigns the history indices [first, first+num) to entities.
// The launch weight of entity m is
//
//	w_m = (1-bias) * Lv[m]*b_m / sum(Lv*b) + bias/M
//
// with b_m the imported bias factor (1 when absent). Each entity receives
// floor(Wv[m]*num) indices and the remainder goes to the largest fractional
// shares, lowest entity index first among equal shares.
func (s *ImportedSource) PrepareForLaunch(bias float64, first, num int) error {
	numEntities := len(s.lv)
	if numEntities == 0 {
		return ErrNoEntities
	}
	if !(bias >= 0 && bias <= 1) {
		return fmt.Errorf("%w: got %g", ErrInvalidBias, bias)
	}
	if num < 0 {
		return fmt.Errorf("number of history indices must be >= 0, got %d", num)
	}

	wv := launchWeights(s.lv, s.bias, bias)
	counts := largestRemainder(wv, num)

	iv := make([]int, numEntities+1)
	iv[0] = first
	for m, n := range counts {
		iv[m+1] = iv[m] + n
	}
	s.alloc = &Allocation{Bias: bias, First: first, Num: num, Wv: wv, Iv: iv}

	if s.l == 0 && num > 0 {
		logrus.Warnf("%s: zero luminosity, %d packets will carry zero weight", s.name, num)
	}
	logrus.Debugf("%s: prepared %d history indices from %d over %d entities (bias %g)", s.name, num, first, numEntities, bias)
	return nil
}

// launchWeights returns the normalized launch weights. When the luminosity
// part vanishes and bias is 0 the weights fall back to a uniform split.
func launchWeights(lv, b []float64, bias float64) []float64 {
	numEntities := len(lv)
	w := make([]float64, numEntities)
	var norm float64
	if b == nil {
		norm = floats.Sum(lv)
	} else {
		norm = floats.Dot(lv, b)
	}
	for m := range w {
		var lum float64
		if norm > 0 {
			lum = lv[m] / norm
			if b != nil {
				lum *= b[m]
			}
		}
		w[m] = (1-bias)*lum + bias/float64(numEntities)
	}
	sum := floats.Sum(w)
	if !(sum > 0) {
		for m := range w {
			w[m] = 1 / float64(numEntities)
		}
		return w
	}
	floats.Scale(1/sum, w)
	return w
}

// largestRemainder apportions num integer units over the normalized weights.
func largestRemainder(wv []float64, num int) []int {
	counts := make([]int, len(wv))
	frac := make([]int64, len(wv))
	assigned := 0
	for m, w := range wv {
		exact := w * float64(num)
		whole := math.Floor(exact)
		counts[m] = int(whole)
		assigned += counts[m]
		frac[m] = int64(math.Round((exact - whole) * fractionQuantum))
	}

	order := make([]int, len(wv))
	for m := range order {
		order[m] = m
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case frac[a] > frac[b]:
			return -1
		case frac[a] < frac[b]:
			return 1
		}
		return a - b
	})

	// Rounding noise can leave the floors one unit off in either direction.
	for i := 0; assigned < num; i = (i + 1) % len(order) {
		counts[order[i]]++
		assigned++
	}
	for i := len(order) - 1; assigned > num; i = (i - 1 + len(order)) % len(order) {
		if counts[order[i]] > 0 {
			counts[order[i]]--
			assigned--
		}
	}
	return counts
}

// Allocation returns a copy of the current allocation, or nil before the first
// PrepareForLaunch.
func (s *ImportedSource) Allocation() *Allocation {
	if s.alloc == nil {
		return nil
	}
	a := *s.alloc
	a.Wv = slices.Clone(a.Wv)
	a.Iv = slices.Clone(a.Iv)
	return &a
}

// EntityForIndex returns the entity owning history index h in the current
// allocation.
func (s *ImportedSource) EntityForIndex(h int) int {
	return s.alloc.Entity(h)
}

// packetWeight returns the luminosity carried by a packet of entity m when
// each packet of an unbiased launch would carry lreq.
func (s *ImportedSource) packetWeight(m int, lreq float64) float64 {
	wv := s.alloc.Wv[m]
	if wv == 0 {
		return 0
	}
	return s.lv[m] * lreq / wv
}
