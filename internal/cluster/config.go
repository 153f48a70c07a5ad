package cluster

import (
	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/ghantakiran/axion-stock-sub001/internal/feature"
)

// Algorithm selects the clustering method.
type Algorithm string

const (
	AlgorithmKMeans        Algorithm = "kmeans"
	AlgorithmAgglomerative Algorithm = "agglomerative"
)

// Config holds cluster classifier settings.
type Config struct {
	NClusters       int
	Algorithm       Algorithm
	MinObservations int
	MaxIterations   int
	Tolerance       float64
	Seed            int64
	FeatureWindow   int
}

// DefaultConfig returns four-cluster K-Means with a fixed seed.
func DefaultConfig() Config {
	return Config{
		NClusters:       4,
		Algorithm:       AlgorithmKMeans,
		MinObservations: 60,
		MaxIterations:   300,
		Tolerance:       1e-6,
		Seed:            42,
		FeatureWindow:   feature.DefaultWindow,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if _, err := core.LabelsFor(c.NClusters); err != nil {
		return err
	}
	switch c.Algorithm {
	case AlgorithmKMeans, AlgorithmAgglomerative:
	default:
		return core.Errorf(core.ErrConfigInvalid, "unknown clustering algorithm %q", c.Algorithm)
	}
	if c.MinObservations < c.NClusters {
		return core.Errorf(core.ErrConfigInvalid,
			"min_observations must be at least n_clusters (%d), got %d", c.NClusters, c.MinObservations)
	}
	if c.MaxIterations < 1 {
		return core.Errorf(core.ErrConfigInvalid, "max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.Tolerance < 0 {
		return core.Errorf(core.ErrConfigInvalid, "tolerance cannot be negative, got %g", c.Tolerance)
	}
	if c.FeatureWindow < 2 {
		return core.Errorf(core.ErrConfigInvalid, "feature_window must be at least 2, got %d", c.FeatureWindow)
	}
	return nil
}
