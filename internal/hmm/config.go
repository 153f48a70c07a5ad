package hmm

import (
	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/ghantakiran/axion-stock-sub001/internal/feature"
)

// Config holds Gaussian HMM settings.
type Config struct {
	NStates           int
	MinObservations   int
	MaxIterations     int
	Tolerance         float64
	CovarianceEpsilon float64
	FeatureWindow     int
}

// DefaultConfig returns the standard four-state configuration.
func DefaultConfig() Config {
	return Config{
		NStates:           4,
		MinObservations:   60,
		MaxIterations:     100,
		Tolerance:         1e-4,
		CovarianceEpsilon: 1e-8,
		FeatureWindow:     feature.DefaultWindow,
	}
}

// Validate rejects configurations no data could make meaningful.
func (c Config) Validate() error {
	if _, err := core.LabelsFor(c.NStates); err != nil {
		return err
	}
	if c.MinObservations < c.NStates {
		return core.Errorf(core.ErrConfigInvalid,
			"min_observations must be at least n_states (%d), got %d", c.NStates, c.MinObservations)
	}
	if c.MaxIterations < 1 {
		return core.Errorf(core.ErrConfigInvalid, "max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.Tolerance <= 0 {
		return core.Errorf(core.ErrConfigInvalid, "tolerance must be positive, got %g", c.Tolerance)
	}
	if c.CovarianceEpsilon <= 0 {
		return core.Errorf(core.ErrConfigInvalid, "covariance_epsilon must be positive, got %g", c.CovarianceEpsilon)
	}
	if c.FeatureWindow < 2 {
		return core.Errorf(core.ErrConfigInvalid, "feature_window must be at least 2, got %d", c.FeatureWindow)
	}
	return nil
}
