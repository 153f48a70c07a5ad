// Package cluster classifies market regimes by clustering rolling
// return features and labeling centroids by mean return.
package cluster

import (
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/ghantakiran/axion-stock-sub001/internal/feature"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// Params is a fitted centroid set. Centroids are sorted by ascending
// first feature and Labels[i] belongs to Centroids[i].
type Params struct {
	Algorithm Algorithm
	Labels    []core.Regime
	Centroids [][]float64
}

// Classifier assigns observations to the nearest fitted centroid.
type Classifier struct {
	cfg      Config
	builder  *feature.Builder
	params   atomic.Pointer[Params]
	logger   *zap.Logger
	recorder core.Recorder
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the classifier logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r core.Recorder) Option {
	return func(c *Classifier) {
		if r != nil {
			c.recorder = r
		}
	}
}

// New creates an unfitted classifier.
func New(cfg Config, opts ...Option) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	builder, err := feature.NewBuilder(cfg.FeatureWindow)
	if err != nil {
		return nil, err
	}
	c := &Classifier{
		cfg:      cfg,
		builder:  builder,
		logger:   zap.NewNop(),
		recorder: core.NopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Classifier) Name() string {
	return core.MethodCluster
}

func (c *Classifier) Config() Config {
	return c.cfg
}

// Params returns the fitted parameters, or nil before the first fit.
func (c *Classifier) Params() *Params {
	return c.params.Load()
}

func (c *Classifier) Fitted() bool {
	return c.params.Load() != nil
}

// Centroids returns a copy of the fitted centroids in label order.
func (c *Classifier) Centroids() [][]float64 {
	p := c.params.Load()
	if p == nil {
		return nil
	}
	out := make([][]float64, len(p.Centroids))
	for i, cen := range p.Centroids {
		out[i] = append([]float64(nil), cen...)
	}
	return out
}

// Fit clusters the feature rows. With fewer rows than MinObservations
// it leaves the classifier unchanged and returns nil.
func (c *Classifier) Fit(rows [][]float64) error {
	if err := feature.Validate(rows); err != nil {
		c.recorder.RecordFit(core.MethodCluster, core.FitStatusFailed, 0)
		return err
	}
	if len(rows) < c.cfg.MinObservations {
		c.logger.Debug("skipping cluster fit, insufficient observations",
			zap.Int("observations", len(rows)),
			zap.Int("min_observations", c.cfg.MinObservations),
		)
		c.recorder.RecordFit(core.MethodCluster, core.FitStatusInsufficient, 0)
		return nil
	}

	start := time.Now()
	var centroids [][]float64
	switch c.cfg.Algorithm {
	case AlgorithmAgglomerative:
		centroids = ward(rows, c.cfg.NClusters)
	default:
		centroids = kmeans(rows, c.cfg.NClusters, c.cfg.MaxIterations, c.cfg.Tolerance, c.cfg.Seed)
	}
	sort.SliceStable(centroids, func(i, j int) bool { return centroids[i][0] < centroids[j][0] })

	labels, err := core.LabelsFor(len(centroids))
	if err != nil {
		c.recorder.RecordFit(core.MethodCluster, core.FitStatusFailed, time.Since(start).Seconds())
		return err
	}
	c.params.Store(&Params{Algorithm: c.cfg.Algorithm, Labels: labels, Centroids: centroids})

	c.recorder.RecordFit(core.MethodCluster, core.FitStatusOK, time.Since(start).Seconds())
	c.logger.Debug("clusters fitted",
		zap.String("algorithm", string(c.cfg.Algorithm)),
		zap.Int("observations", len(rows)),
		zap.Int("clusters", len(centroids)),
	)
	return nil
}

// FitSeries builds features from returns and fits on them.
func (c *Classifier) FitSeries(returns, vols []float64) error {
	m, err := c.builder.Build(returns, vols)
	if err != nil {
		return err
	}
	return c.Fit(m.Rows)
}

func (c *Classifier) check(rows [][]float64) (*Params, error) {
	p := c.params.Load()
	if p == nil {
		return nil, core.ErrNotFitted
	}
	if err := feature.Validate(rows); err != nil {
		return nil, err
	}
	if len(rows) > 0 && len(rows[0]) != len(p.Centroids[0]) {
		return nil, core.Errorf(core.ErrInvalidInput,
			"feature width %d does not match fitted width %d", len(rows[0]), len(p.Centroids[0]))
	}
	return p, nil
}

// Predict returns the nearest-centroid label for every row.
func (c *Classifier) Predict(rows [][]float64) ([]core.Regime, error) {
	p, err := c.check(rows)
	if err != nil {
		return nil, err
	}
	out := make([]core.Regime, len(rows))
	for i, r := range rows {
		k, _, _ := nearestTwo(r, p.Centroids)
		out[i] = p.Labels[k]
	}
	return out, nil
}

// Classify labels the latest observation, fitting first if needed.
func (c *Classifier) Classify(returns, vols []float64) (core.Result, error) {
	h, err := c.ClassifyHistory(returns, vols)
	if err != nil {
		return core.Result{}, err
	}
	res := h.Last()
	if !res.IsUnknown() {
		c.recorder.RecordClassification(core.MethodCluster, res.Regime)
	}
	return res, nil
}

// Detect is Classify under the name shared by all detectors.
func (c *Classifier) Detect(returns, vols []float64) (core.Result, error) {
	return c.Classify(returns, vols)
}

// DetectHistory is ClassifyHistory under the name shared by all detectors.
func (c *Classifier) DetectHistory(returns, vols []float64) (core.History, error) {
	return c.ClassifyHistory(returns, vols)
}

// ClassifyHistory labels every observation. Steps before the feature
// window fills repeat the first classified step.
func (c *Classifier) ClassifyHistory(returns, vols []float64) (core.History, error) {
	m, err := c.builder.Build(returns, vols)
	if err != nil {
		return core.History{}, err
	}
	empty := core.History{Method: core.MethodCluster, Labels: []core.Regime{}, Confidences: []float64{}, Segments: []core.Segment{}}
	if m.Len() < c.cfg.MinObservations {
		return empty, nil
	}
	if !c.Fitted() {
		if err := c.Fit(m.Rows); err != nil {
			return core.History{}, err
		}
		if !c.Fitted() {
			return empty, nil
		}
	}
	p, err := c.check(m.Rows)
	if err != nil {
		return core.History{}, err
	}

	labels := make([]core.Regime, m.Len())
	confs := make([]float64, m.Len())
	dists := make([]core.Distribution, m.Len())
	for i, r := range m.Rows {
		k, conf, dist := classifyRow(r, p)
		labels[i] = p.Labels[k]
		confs[i] = conf
		dists[i] = dist
	}

	n := len(returns)
	labels = core.PadHead(labels, n)
	return core.History{
		Method:        core.MethodCluster,
		Labels:        labels,
		Confidences:   core.PadHead(confs, n),
		Probabilities: core.PadHead(dists, n),
		Segments:      core.BuildSegments(labels, returns),
	}, nil
}

// classifyRow returns the nearest centroid, the margin confidence
// d2/(d1+d2) and a distribution whose nearest mass equals it.
func classifyRow(x []float64, p *Params) (int, float64, core.Distribution) {
	k, d1, d2 := nearestTwo(x, p.Centroids)

	conf := 0.5
	if d1+d2 > 0 {
		conf = d2 / (d1 + d2)
	}

	dist := make([]float64, len(p.Centroids))
	for i, cen := range p.Centroids {
		dist[i] = floats.Distance(x, cen, 2)
	}
	temp := floats.Sum(dist) / float64(len(dist))

	weights := make([]float64, len(dist))
	for i, d := range dist {
		if temp > 0 {
			weights[i] = math.Exp(-d / temp)
		} else {
			weights[i] = 1
		}
	}
	var rest float64
	for i, w := range weights {
		if i != k {
			rest += w
		}
	}

	out := make(core.Distribution, len(p.Labels))
	others := float64(len(p.Labels) - 1)
	for i, l := range p.Labels {
		switch {
		case i == k:
			out[l] = conf
		case rest > 0:
			out[l] = (1 - conf) * weights[i] / rest
		default:
			out[l] = (1 - conf) / others
		}
	}
	return k, conf, out
}

// SilhouetteScore averages the silhouette coefficient over all feature
// rows. It returns 0 when unfitted, when fewer than two clusters are
// populated, or when the series is too short to build features.
func (c *Classifier) SilhouetteScore(returns, vols []float64) float64 {
	p := c.params.Load()
	if p == nil {
		return 0
	}
	m, err := c.builder.Build(returns, vols)
	if err != nil || m.Len() < 2 {
		return 0
	}
	if _, err := c.check(m.Rows); err != nil {
		return 0
	}

	assign := make([]int, m.Len())
	populated := make(map[int]int)
	for i, r := range m.Rows {
		k, _, _ := nearestTwo(r, p.Centroids)
		assign[i] = k
		populated[k]++
	}
	if len(populated) < 2 {
		return 0
	}
	return silhouette(m.Rows, assign, populated)
}

func silhouette(rows [][]float64, assign []int, sizes map[int]int) float64 {
	var total float64
	for i, r := range rows {
		sums := make(map[int]float64, len(sizes))
		for j, o := range rows {
			if i == j {
				continue
			}
			sums[assign[j]] += floats.Distance(r, o, 2)
		}

		own := assign[i]
		if sizes[own] < 2 {
			continue
		}
		a := sums[own] / float64(sizes[own]-1)
		b := math.Inf(1)
		for k, n := range sizes {
			if k == own {
				continue
			}
			if mean := sums[k] / float64(n); mean < b {
				b = mean
			}
		}
		if denom := math.Max(a, b); denom > 0 {
			total += (b - a) / denom
		}
	}
	return total / float64(len(rows))
}

// Diagnostics reports the silhouette score of the current fit.
func (c *Classifier) Diagnostics(returns, vols []float64) map[string]float64 {
	if !c.Fitted() {
		return nil
	}
	return map[string]float64{"silhouette": c.SilhouetteScore(returns, vols)}
}
