// Package stochastic evolves Brownian, bridged and jump-diffusion processes.
package stochastic

import (
	"errors"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInvalidParameter reports a process parameter outside its domain.
var ErrInvalidParameter = errors.New("stochastic: invalid parameter")

// Source supplies the random draws a process consumes. *rand.Rand satisfies it.
type Source interface {
	Uint64() uint64
	Float64() float64
	NormFloat64() float64
}

// NewSource returns a seeded PCG generator.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// poisson draws a Poisson(mean) count from the same stream as the other draws.
func poisson(mean float64, rng Source) int {
	if mean <= 0 {
		return 0
	}
	return int(distuv.Poisson{Lambda: mean, Src: rng}.Rand())
}
