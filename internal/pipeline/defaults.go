package pipeline

import (
	"github.com/ghantakiran/axion-stock-sub001/internal/cluster"
	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/ghantakiran/axion-stock-sub001/internal/ensemble"
	"github.com/ghantakiran/axion-stock-sub001/internal/hmm"
	"github.com/ghantakiran/axion-stock-sub001/internal/rule"
	"github.com/ghantakiran/axion-stock-sub001/internal/transition"
	"go.uber.org/zap"
)

// Config gathers the settings of every built-in method.
type Config struct {
	HMM        hmm.Config
	Cluster    cluster.Config
	Rule       rule.Config
	Transition transition.Config
	Ensemble   ensemble.Config
}

func DefaultConfig() Config {
	return Config{
		HMM:        hmm.DefaultConfig(),
		Cluster:    cluster.DefaultConfig(),
		Rule:       rule.DefaultConfig(),
		Transition: transition.DefaultConfig(),
		Ensemble:   ensemble.DefaultConfig(),
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	for _, v := range []interface{ Validate() error }{c.HMM, c.Cluster, c.Rule, c.Transition, c.Ensemble} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// NewDefault builds an engine with the hmm, cluster and rule methods
// registered.
func NewDefault(cfg Config, logger *zap.Logger, recorder Recorder) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	ens, err := ensemble.New(cfg.Ensemble)
	if err != nil {
		return nil, err
	}
	analyzer, err := transition.NewAnalyzer(cfg.Transition, logger.Named("transition"))
	if err != nil {
		return nil, err
	}

	e := NewEngine(ens, analyzer, WithLogger(logger), WithRecorder(recorder))
	e.Register(core.MethodHMM, func() (Detector, error) {
		return hmm.New(cfg.HMM, hmm.WithLogger(logger.Named("hmm")), hmm.WithRecorder(recorder))
	})
	e.Register(core.MethodCluster, func() (Detector, error) {
		return cluster.New(cfg.Cluster, cluster.WithLogger(logger.Named("cluster")), cluster.WithRecorder(recorder))
	})
	e.Register(core.MethodRule, func() (Detector, error) {
		return rule.New(cfg.Rule, rule.WithLogger(logger.Named("rule")), rule.WithRecorder(recorder))
	})
	return e, nil
}
