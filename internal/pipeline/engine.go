// Package pipeline runs every registered regime method over a series
// and assembles the consensus report.
package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/ghantakiran/axion-stock-sub001/internal/ensemble"
	"github.com/ghantakiran/axion-stock-sub001/internal/series"
	"github.com/ghantakiran/axion-stock-sub001/internal/transition"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Detector is the contract every regime method satisfies.
type Detector interface {
	Name() string
	Detect(returns, vols []float64) (core.Result, error)
	DetectHistory(returns, vols []float64) (core.History, error)
}

// Diagnoser is implemented by detectors that report fit quality.
type Diagnoser interface {
	Diagnostics(returns, vols []float64) map[string]float64
}

// Factory builds a fresh detector. Each analysis gets its own instance
// so fitted state is never shared between requests.
type Factory func() (Detector, error)

// Recorder receives pipeline metrics.
type Recorder interface {
	core.Recorder
	RecordConsensus(agreement float64)
	RecordAnalysis(seconds float64)
}

type nopRecorder struct{ core.NopRecorder }

func (nopRecorder) RecordConsensus(float64) {}
func (nopRecorder) RecordAnalysis(float64)  {}

// MethodReport is one method's outcome within a Report.
type MethodReport struct {
	Result      core.Result        `json:"result"`
	Segments    []core.Segment     `json:"segments"`
	Diagnostics map[string]float64 `json:"diagnostics,omitempty"`
}

// Report is the full multi-method analysis of one series.
type Report struct {
	Symbol       string                  `json:"symbol"`
	GeneratedAt  time.Time               `json:"generated_at"`
	Observations int                     `json:"observations"`
	Result       core.Result             `json:"result"`
	Consensus    *ensemble.Consensus     `json:"consensus,omitempty"`
	Comparison   *ensemble.Comparison    `json:"comparison,omitempty"`
	Methods      map[string]MethodReport `json:"methods"`
	Skipped      map[string]string       `json:"skipped,omitempty"`
	Segments     []core.Segment          `json:"segments,omitempty"`
	Transitions  *transition.Report      `json:"transitions,omitempty"`
}

// Request narrows an analysis. Zero values select all methods and the
// configured horizon.
type Request struct {
	Methods []string
	Horizon int
}

// Engine holds the registered methods and combination settings.
type Engine struct {
	mu        sync.RWMutex
	factories map[string]Factory
	ensemble  *ensemble.Ensemble
	analyzer  *transition.Analyzer
	logger    *zap.Logger
	recorder  Recorder
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// NewEngine creates an engine with no registered methods.
func NewEngine(ens *ensemble.Ensemble, analyzer *transition.Analyzer, opts ...Option) *Engine {
	e := &Engine{
		factories: make(map[string]Factory),
		ensemble:  ens,
		analyzer:  analyzer,
		logger:    zap.NewNop(),
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Register adds or replaces a method.
func (e *Engine) Register(name string, f Factory) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.factories[name] = f
}

// Methods returns the registered method names in sorted order.
func (e *Engine) Methods() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.factories))
	for n := range e.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewDetector builds a fresh detector for one registered method.
func (e *Engine) NewDetector(name string) (Detector, error) {
	e.mu.RLock()
	f, ok := e.factories[name]
	e.mu.RUnlock()
	if !ok {
		return nil, core.Errorf(core.ErrInvalidInput, "unknown method %q", name)
	}
	return f()
}

func (e *Engine) Ensemble() *ensemble.Ensemble {
	return e.ensemble
}

func (e *Engine) Analyzer() *transition.Analyzer {
	return e.analyzer
}

// Analyze runs every registered method with default settings.
func (e *Engine) Analyze(ctx context.Context, s series.Series) (*Report, error) {
	return e.AnalyzeWith(ctx, s, Request{})
}

type outcome struct {
	name        string
	history     core.History
	diagnostics map[string]float64
	err         error
}

// AnalyzeWith runs the requested methods concurrently, one goroutine
// per method, then combines the latest classifications and the full
// consensus history.
func (e *Engine) AnalyzeWith(ctx context.Context, s series.Series, req Request) (*Report, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	names := req.Methods
	if len(names) == 0 {
		names = e.Methods()
	}
	for _, n := range names {
		e.mu.RLock()
		_, ok := e.factories[n]
		e.mu.RUnlock()
		if !ok {
			return nil, core.Errorf(core.ErrInvalidInput, "unknown method %q", n)
		}
	}
	if len(names) == 0 {
		return nil, core.ErrNoMethods
	}

	start := time.Now()
	outcomes := make([]outcome, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = e.run(name, s)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{
		Symbol:       s.Symbol,
		GeneratedAt:  time.Now().UTC(),
		Observations: s.Len(),
		Result:       core.Unknown(core.MethodEnsemble),
		Methods:      make(map[string]MethodReport),
		Skipped:      make(map[string]string),
	}

	states := make(map[string]core.Result)
	histories := make(map[string]core.History)
	failed := 0
	for _, o := range outcomes {
		if o.err != nil {
			e.logger.Warn("regime method failed",
				zap.String("method", o.name),
				zap.String("symbol", s.Symbol),
				zap.Error(o.err),
			)
			report.Skipped[o.name] = o.err.Error()
			failed++
			continue
		}
		res := o.history.Last()
		res.Method = o.name
		report.Methods[o.name] = MethodReport{Result: res, Segments: o.history.Segments, Diagnostics: o.diagnostics}
		if res.IsUnknown() {
			report.Skipped[o.name] = "insufficient data"
			continue
		}
		states[o.name] = res
		histories[o.name] = o.history
	}
	if failed == len(outcomes) {
		return nil, core.Errorf(core.ErrNoMethods, "all %d methods failed", failed)
	}

	if len(states) > 0 {
		if err := e.combine(report, states, histories, s, req.Horizon); err != nil {
			return nil, err
		}
	}

	elapsed := time.Since(start).Seconds()
	e.recorder.RecordAnalysis(elapsed)
	e.logger.Info("regime analysis complete",
		zap.String("symbol", s.Symbol),
		zap.Int("observations", s.Len()),
		zap.Int("methods", len(states)),
		zap.String("regime", string(report.Result.Regime)),
		zap.Float64("confidence", report.Result.Confidence),
		zap.Float64("duration_s", elapsed),
	)
	return report, nil
}

func (e *Engine) run(name string, s series.Series) outcome {
	o := outcome{name: name}
	d, err := e.NewDetector(name)
	if err != nil {
		o.err = err
		return o
	}
	h, err := d.DetectHistory(s.Returns, s.Vols())
	if err != nil {
		o.err = err
		return o
	}
	o.history = h
	if h.Len() > 0 {
		e.recorder.RecordClassification(name, h.Labels[h.Len()-1])
	}
	if diag, ok := d.(Diagnoser); ok {
		o.diagnostics = diag.Diagnostics(s.Returns, s.Vols())
	}
	return o
}

func (e *Engine) combine(report *Report, states map[string]core.Result, histories map[string]core.History, s series.Series, horizon int) error {
	cmp, err := e.ensemble.CompareStates(states)
	if err != nil {
		return err
	}
	e.recorder.RecordConsensus(cmp.Consensus.AgreementRatio)
	report.Consensus = &cmp.Consensus
	report.Comparison = &cmp

	consensus, err := e.ensemble.CombineHistories(histories, s.Returns)
	if err != nil {
		return err
	}
	report.Segments = consensus.Segments
	report.Result = cmp.Consensus.Result(core.TrailingDuration(consensus.Labels))

	tr, err := e.analyzer.Analyze(consensus.Labels, tail(s.Returns, consensus.Len()), horizon)
	if err != nil {
		return err
	}
	report.Transitions = tr
	return nil
}

func tail(v []float64, n int) []float64 {
	if len(v) > n {
		return v[len(v)-n:]
	}
	return v
}
