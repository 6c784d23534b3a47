// Package rng provides the random source shared by the simulator and the
// analytics generators, plus the rounding helpers they rely on.
package rng

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// Source is the subset of *rand.Rand used across the project.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// Locked is a Source safe for concurrent use.
type Locked struct {
	mu sync.Mutex
	r  *rand.Rand
}

// New returns a Locked source. A zero seed picks a time-based one.
func New(seed int64) *Locked {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Locked{r: rand.New(rand.NewSource(seed))}
}

func (l *Locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *Locked) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// Between draws uniformly in [min, max) and rounds to the given decimals.
func Between(src Source, min, max float64, decimals int) float64 {
	n := src.Float64()*(max-min) + min
	return Round(n, decimals)
}

// Round rounds half away from zero on positive values and half up on
// negatives, matching the rounding the dashboard figures were built with.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Floor(v*p+0.5) / p
}

// Chance reports whether a draw falls below p.
func Chance(src Source, p float64) bool {
	return src.Float64() < p
}

// Clamp bounds v to [min, max].
func Clamp(v, min, max float64) float64 {
	return math.Min(max, math.Max(min, v))
}
