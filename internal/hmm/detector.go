// Package hmm implements a Gaussian hidden Markov model regime detector
// fitted by expectation-maximization.
package hmm

import (
	"sync/atomic"
	"time"

	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/ghantakiran/axion-stock-sub001/internal/feature"
	"go.uber.org/zap"
)

// Detector classifies return series with a Gaussian HMM.
//
// Fitted parameters are published atomically, so concurrent readers
// see either the old or the new parameter set. Concurrent fits on one
// instance are not coordinated; callers serialize them.
type Detector struct {
	cfg      Config
	builder  *feature.Builder
	params   atomic.Pointer[Params]
	logger   *zap.Logger
	recorder core.Recorder
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the detector logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r core.Recorder) Option {
	return func(d *Detector) {
		if r != nil {
			d.recorder = r
		}
	}
}

// New creates an unfitted detector.
func New(cfg Config, opts ...Option) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	builder, err := feature.NewBuilder(cfg.FeatureWindow)
	if err != nil {
		return nil, err
	}
	d := &Detector{
		cfg:      cfg,
		builder:  builder,
		logger:   zap.NewNop(),
		recorder: core.NopRecorder{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Name returns the method tag.
func (d *Detector) Name() string {
	return core.MethodHMM
}

// Config returns the detector configuration.
func (d *Detector) Config() Config {
	return d.cfg
}

// Params returns the fitted parameters, or nil before the first fit.
// The returned value must not be modified.
func (d *Detector) Params() *Params {
	return d.params.Load()
}

// Fitted reports whether parameters are available.
func (d *Detector) Fitted() bool {
	return d.params.Load() != nil
}

// Fit estimates parameters from a feature matrix. With fewer rows than
// MinObservations it leaves the detector unchanged and returns nil.
func (d *Detector) Fit(rows [][]float64) error {
	if err := feature.Validate(rows); err != nil {
		d.recorder.RecordFit(core.MethodHMM, core.FitStatusFailed, 0)
		return err
	}
	if len(rows) < d.cfg.MinObservations {
		d.logger.Debug("skipping hmm fit, insufficient observations",
			zap.Int("observations", len(rows)),
			zap.Int("min_observations", d.cfg.MinObservations),
		)
		d.recorder.RecordFit(core.MethodHMM, core.FitStatusInsufficient, 0)
		return nil
	}

	start := time.Now()
	p, err := fit(rows, d.cfg)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		d.recorder.RecordFit(core.MethodHMM, core.FitStatusFailed, elapsed)
		return err
	}
	d.params.Store(p)

	d.recorder.RecordFit(core.MethodHMM, core.FitStatusOK, elapsed)
	d.recorder.RecordIterations(core.MethodHMM, p.Iterations)
	d.logger.Debug("hmm fitted",
		zap.Int("observations", len(rows)),
		zap.Int("states", p.NStates()),
		zap.Int("iterations", p.Iterations),
		zap.Bool("converged", p.Converged),
		zap.Float64("log_likelihood", p.LogLikelihood),
	)
	return nil
}

// FitSeries builds features from returns and fits on them.
func (d *Detector) FitSeries(returns, vols []float64) error {
	m, err := d.builder.Build(returns, vols)
	if err != nil {
		return err
	}
	return d.Fit(m.Rows)
}

func (d *Detector) posterior(rows [][]float64) (*Params, posterior, error) {
	p := d.params.Load()
	if p == nil {
		return nil, posterior{}, core.ErrNotFitted
	}
	if err := feature.Validate(rows); err != nil {
		return nil, posterior{}, err
	}
	if len(rows) > 0 && len(rows[0]) != p.Dim() {
		return nil, posterior{}, core.Errorf(core.ErrInvalidInput,
			"feature width %d does not match fitted width %d", len(rows[0]), p.Dim())
	}
	return p, forwardBackward(p.logEmissions(rows), p.StartProb, p.TransMat, false), nil
}

// Predict returns the most probable label at every step.
func (d *Detector) Predict(rows [][]float64) ([]core.Regime, error) {
	p, post, err := d.posterior(rows)
	if err != nil {
		return nil, err
	}
	labels := make([]core.Regime, len(post.gamma))
	for t, g := range post.gamma {
		labels[t] = p.Labels[argmax(g)]
	}
	return labels, nil
}

// PredictProba returns the normalized state occupancy at every step.
func (d *Detector) PredictProba(rows [][]float64) ([]core.Distribution, error) {
	p, post, err := d.posterior(rows)
	if err != nil {
		return nil, err
	}
	return toDistributions(p.Labels, post.gamma), nil
}

// Score returns the log-likelihood of rows under the fitted model.
func (d *Detector) Score(rows [][]float64) (float64, error) {
	_, post, err := d.posterior(rows)
	if err != nil {
		return 0, err
	}
	return post.logLikelihood, nil
}

// Detect classifies the latest observation, fitting first if needed.
func (d *Detector) Detect(returns, vols []float64) (core.Result, error) {
	h, err := d.DetectHistory(returns, vols)
	if err != nil {
		return core.Result{}, err
	}
	res := h.Last()
	if !res.IsUnknown() {
		d.recorder.RecordClassification(core.MethodHMM, res.Regime)
	}
	return res, nil
}

// DetectHistory classifies every observation. Steps before the feature
// window fills repeat the first classified step.
func (d *Detector) DetectHistory(returns, vols []float64) (core.History, error) {
	m, err := d.builder.Build(returns, vols)
	if err != nil {
		return core.History{}, err
	}
	empty := core.History{Method: core.MethodHMM, Labels: []core.Regime{}, Confidences: []float64{}, Segments: []core.Segment{}}
	if m.Len() < d.cfg.MinObservations {
		return empty, nil
	}
	if !d.Fitted() {
		if err := d.Fit(m.Rows); err != nil {
			return core.History{}, err
		}
		if !d.Fitted() {
			return empty, nil
		}
	}

	p, post, err := d.posterior(m.Rows)
	if err != nil {
		return core.History{}, err
	}

	labels := make([]core.Regime, len(post.gamma))
	confs := make([]float64, len(post.gamma))
	for t, g := range post.gamma {
		k := argmax(g)
		labels[t] = p.Labels[k]
		confs[t] = g[k]
	}
	dists := toDistributions(p.Labels, post.gamma)

	n := len(returns)
	labels = core.PadHead(labels, n)
	return core.History{
		Method:        core.MethodHMM,
		Labels:        labels,
		Confidences:   core.PadHead(confs, n),
		Probabilities: core.PadHead(dists, n),
		Segments:      core.BuildSegments(labels, returns),
	}, nil
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

func toDistributions(labels []core.Regime, gamma [][]float64) []core.Distribution {
	out := make([]core.Distribution, len(gamma))
	for t, g := range gamma {
		dist := make(core.Distribution, len(labels))
		for k, l := range labels {
			dist[l] = g[k]
		}
		out[t] = dist
	}
	return out
}

// Diagnostics reports the fit statistics of the current parameters and
// the log-likelihood of the supplied series under them. score is left
// out when the series yields no scorable features.
func (d *Detector) Diagnostics(returns, vols []float64) map[string]float64 {
	p := d.params.Load()
	if p == nil {
		return nil
	}
	out := map[string]float64{
		"log_likelihood": p.LogLikelihood,
		"iterations":     float64(p.Iterations),
	}
	m, err := d.builder.Build(returns, vols)
	if err != nil || m.Len() == 0 {
		return out
	}
	if score, err := d.Score(m.Rows); err == nil {
		out["score"] = score
	}
	return out
}
