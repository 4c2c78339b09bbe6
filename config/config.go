package config

import "sync"

// Config holds solver and curve construction parameters shared by the
// numerical packages.
type Config struct {
	// ConvergenceTolerance is the |f(x)| tolerance for root finders.
	ConvergenceTolerance float64 `yaml:"convergence_tolerance"`

	// MaxIterations is the iteration cap for root finders and bootstraps.
	MaxIterations int `yaml:"max_iterations"`

	// DampingFactor limits Newton step size to prevent overshooting.
	// Delta is clamped to DampingFactor * max(1, |currentGuess|).
	DampingFactor float64 `yaml:"damping_factor"`

	// MinDiscountFactor is the floor for discount factors to prevent
	// numerical instability (division by near-zero).
	MinDiscountFactor float64 `yaml:"min_discount_factor"`

	// DerivativeThreshold is the minimum derivative magnitude.
	// Below this, Newton iteration stops to avoid division by near-zero.
	DerivativeThreshold float64 `yaml:"derivative_threshold"`

	// DerivativeStep is the finite difference step for numerical derivatives.
	DerivativeStep float64 `yaml:"derivative_step"`

	// MaxSeriesTerms caps series and asymptotic expansions.
	MaxSeriesTerms int `yaml:"max_series_terms"`

	// SeriesTolerance stops a series once a term is below this fraction of the sum.
	SeriesTolerance float64 `yaml:"series_tolerance"`

	// QuadratureNodes is the Gauss-Legendre node count for fixed quadrature.
	QuadratureNodes int `yaml:"quadrature_nodes"`
}

// DefaultConfig provides production-ready default values.
var DefaultConfig = Config{
	ConvergenceTolerance: 1e-12,
	MaxIterations:        100,
	DampingFactor:        0.5,
	MinDiscountFactor:    1e-9,
	DerivativeThreshold:  1e-15,
	DerivativeStep:       1e-5,
	MaxSeriesTerms:       500,
	SeriesTolerance:      1e-16,
	QuadratureNodes:      128,
}

var (
	mu  sync.RWMutex
	cfg = DefaultConfig
)

// SetConfig replaces the active configuration.
func SetConfig(c Config) {
	mu.Lock()
	cfg = c
	mu.Unlock()
}

// GetConfig returns the active configuration.
func GetConfig() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}
