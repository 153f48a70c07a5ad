// Package rule classifies regimes with a weighted vote of simple
// trend, momentum and volatility rules.
package rule

import (
	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/ghantakiran/axion-stock-sub001/internal/indicator"
	"go.uber.org/zap"
)

// Config holds rule thresholds and vote weights.
type Config struct {
	Lookback         int
	TrendThreshold   float64
	FastPeriod       int
	SlowPeriod       int
	CrisisVolatility float64

	TrendWeight      float64
	MomentumWeight   float64
	VolatilityWeight float64
}

func DefaultConfig() Config {
	return Config{
		Lookback:         20,
		TrendThreshold:   0.05,
		FastPeriod:       5,
		SlowPeriod:       20,
		CrisisVolatility: 0.45,
		TrendWeight:      0.4,
		MomentumWeight:   0.3,
		VolatilityWeight: 0.3,
	}
}

// MinObservations is the shortest series the detector classifies.
func (c Config) MinObservations() int {
	return c.Lookback + 1
}

func (c Config) Validate() error {
	switch {
	case c.Lookback < 2:
		return core.Errorf(core.ErrConfigInvalid, "lookback must be at least 2, got %d", c.Lookback)
	case c.FastPeriod < 1 || c.FastPeriod >= c.SlowPeriod:
		return core.Errorf(core.ErrConfigInvalid,
			"fast period must be positive and below slow period, got %d/%d", c.FastPeriod, c.SlowPeriod)
	case c.SlowPeriod > c.Lookback+1:
		return core.Errorf(core.ErrConfigInvalid,
			"slow period %d exceeds lookback price path of %d points", c.SlowPeriod, c.Lookback+1)
	case c.TrendThreshold <= 0:
		return core.Errorf(core.ErrConfigInvalid, "trend threshold must be positive, got %g", c.TrendThreshold)
	case c.CrisisVolatility <= 0:
		return core.Errorf(core.ErrConfigInvalid, "crisis volatility must be positive, got %g", c.CrisisVolatility)
	case c.TrendWeight < 0 || c.MomentumWeight < 0 || c.VolatilityWeight < 0:
		return core.Errorf(core.ErrConfigInvalid, "vote weights cannot be negative")
	case c.TrendWeight+c.MomentumWeight+c.VolatilityWeight == 0:
		return core.Errorf(core.ErrConfigInvalid, "at least one vote weight must be positive")
	}
	return nil
}

// Votes records the label each rule chose for one window.
type Votes struct {
	Trend      core.Regime `json:"trend"`
	Momentum   core.Regime `json:"momentum"`
	Volatility core.Regime `json:"volatility"`

	CumulativeReturn float64 `json:"cumulative_return"`
	AnnualizedVol    float64 `json:"annualized_volatility"`
}

// Detector is a stateless rule-based regime classifier.
type Detector struct {
	cfg      Config
	logger   *zap.Logger
	recorder core.Recorder
}

// Option configures a Detector.
type Option func(*Detector)

func WithLogger(l *zap.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}

func WithRecorder(r core.Recorder) Option {
	return func(d *Detector) {
		if r != nil {
			d.recorder = r
		}
	}
}

func New(cfg Config, opts ...Option) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Detector{cfg: cfg, logger: zap.NewNop(), recorder: core.NopRecorder{}}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *Detector) Name() string {
	return core.MethodRule
}

func (d *Detector) Config() Config {
	return d.cfg
}

// Vote applies the three rules to one window of simple returns.
func (d *Detector) Vote(window []float64) Votes {
	cum := indicator.CumulativeReturn(window)
	vol := indicator.AnnualizedVolatility(window)

	v := Votes{CumulativeReturn: cum, AnnualizedVol: vol}
	switch {
	case cum > d.cfg.TrendThreshold:
		v.Trend = core.RegimeBull
	case cum < -d.cfg.TrendThreshold:
		v.Trend = core.RegimeBear
	default:
		v.Trend = core.RegimeSideways
	}

	path := indicator.PricePath(window)
	fast := indicator.EMA(path, d.cfg.FastPeriod)
	slow := indicator.EMA(path, d.cfg.SlowPeriod)
	v.Momentum = core.RegimeSideways
	if len(fast) > 0 && len(slow) > 0 {
		f, s := fast[len(fast)-1], slow[len(slow)-1]
		switch {
		case f > s:
			v.Momentum = core.RegimeBull
		case f < s:
			v.Momentum = core.RegimeBear
		}
	}

	switch {
	case vol > d.cfg.CrisisVolatility && cum < 0:
		v.Volatility = core.RegimeCrisis
	case vol > d.cfg.CrisisVolatility:
		v.Volatility = core.RegimeSideways
	default:
		// Calm markets confirm the prevailing trend.
		v.Volatility = v.Trend
	}
	return v
}

// distribution turns votes into weight shares over the canonical labels.
func (d *Detector) distribution(v Votes) core.Distribution {
	dist := core.Distribution{}
	for _, l := range core.CanonicalRegimes {
		dist[l] = 0
	}
	dist[v.Trend] += d.cfg.TrendWeight
	dist[v.Momentum] += d.cfg.MomentumWeight
	dist[v.Volatility] += d.cfg.VolatilityWeight
	return dist.Normalize()
}

// Detect classifies the final Lookback window.
func (d *Detector) Detect(returns, vols []float64) (core.Result, error) {
	h, err := d.DetectHistory(returns, vols)
	if err != nil {
		return core.Result{}, err
	}
	res := h.Last()
	if !res.IsUnknown() {
		d.recorder.RecordClassification(core.MethodRule, res.Regime)
	}
	return res, nil
}

// DetectHistory classifies every full window. vols is accepted for
// interface parity and must match returns in length when given.
func (d *Detector) DetectHistory(returns, vols []float64) (core.History, error) {
	if vols != nil && len(vols) != len(returns) {
		return core.History{}, core.Errorf(core.ErrInvalidInput,
			"volatility length %d does not match returns length %d", len(vols), len(returns))
	}
	empty := core.History{Method: core.MethodRule, Labels: []core.Regime{}, Confidences: []float64{}, Segments: []core.Segment{}}
	if len(returns) < d.cfg.MinObservations() {
		d.logger.Debug("not enough history for rule detector",
			zap.Int("observations", len(returns)),
			zap.Int("min_observations", d.cfg.MinObservations()),
		)
		return empty, nil
	}

	lb := d.cfg.Lookback
	steps := len(returns) - lb + 1
	labels := make([]core.Regime, steps)
	confs := make([]float64, steps)
	dists := make([]core.Distribution, steps)
	for i := 0; i < steps; i++ {
		dist := d.distribution(d.Vote(returns[i : i+lb]))
		labels[i], confs[i] = dist.Argmax(core.CanonicalRegimes)
		dists[i] = dist
	}

	n := len(returns)
	labels = core.PadHead(labels, n)
	return core.History{
		Method:        core.MethodRule,
		Labels:        labels,
		Confidences:   core.PadHead(confs, n),
		Probabilities: core.PadHead(dists, n),
		Segments:      core.BuildSegments(labels, returns),
	}, nil
}
