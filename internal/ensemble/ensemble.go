// Package ensemble reconciles regime classifications from several
// methods into one weighted consensus.
package ensemble

import (
	"sort"

	"github.com/ghantakiran/axion-stock-sub001/internal/core"
)

// Config holds per-method reliability weights.
type Config struct {
	Weights       map[string]float64
	DefaultWeight float64
}

// DefaultConfig weights the HMM above the clustering and rule methods.
func DefaultConfig() Config {
	return Config{
		Weights: map[string]float64{
			core.MethodHMM:     0.40,
			core.MethodCluster: 0.30,
			core.MethodRule:    0.30,
		},
		DefaultWeight: 1.0,
	}
}

func (c Config) Validate() error {
	if c.DefaultWeight <= 0 {
		return core.Errorf(core.ErrConfigInvalid, "default weight must be positive, got %g", c.DefaultWeight)
	}
	for m, w := range c.Weights {
		if w < 0 {
			return core.Errorf(core.ErrConfigInvalid, "weight for %s cannot be negative, got %g", m, w)
		}
	}
	return nil
}

// MethodResult is one method's vote. Probabilities is optional; without
// it a distribution is synthesized from Regime and Confidence.
type MethodResult struct {
	Method        string            `json:"method"`
	Regime        core.Regime       `json:"regime"`
	Confidence    float64           `json:"confidence"`
	Probabilities core.Distribution `json:"probabilities,omitempty"`
	Weight        float64           `json:"weight,omitempty"`
}

// Consensus is the blended classification.
type Consensus struct {
	Regime         core.Regime       `json:"regime"`
	Confidence     float64           `json:"confidence"`
	Probabilities  core.Distribution `json:"probabilities"`
	Agreement      map[string]bool   `json:"agreement"`
	AgreementRatio float64           `json:"agreement_ratio"`
	Unanimous      bool              `json:"unanimous"`
	Methods        []string          `json:"methods"`
}

// Result converts the consensus to the shared result shape.
func (c Consensus) Result(duration int) core.Result {
	return core.Result{
		Regime:        c.Regime,
		Confidence:    c.Confidence,
		Probabilities: c.Probabilities,
		Duration:      duration,
		Method:        core.MethodEnsemble,
	}
}

// Ensemble combines method results under a fixed weight table.
type Ensemble struct {
	cfg Config
}

func New(cfg Config) (*Ensemble, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Ensemble{cfg: cfg}, nil
}

func (e *Ensemble) Config() Config {
	return e.cfg
}

// WeightFor returns the configured weight of method.
func (e *Ensemble) WeightFor(method string) float64 {
	if w, ok := e.cfg.Weights[method]; ok && w > 0 {
		return w
	}
	return e.cfg.DefaultWeight
}

// Combine blends the distributions of results weighted by each
// result's Weight. A zero weight means DefaultWeight.
func (e *Ensemble) Combine(results []MethodResult) (Consensus, error) {
	if len(results) == 0 {
		return Consensus{}, core.ErrNoMethods
	}
	for _, r := range results {
		if r.Weight < 0 {
			return Consensus{}, core.Errorf(core.ErrInvalidInput,
				"method %s has negative weight %g", r.Method, r.Weight)
		}
	}

	vocab := vocabulary(results)
	blend := make(core.Distribution, len(vocab))
	for _, l := range vocab {
		blend[l] = 0
	}
	for _, r := range results {
		w := r.Weight
		if w == 0 {
			w = e.cfg.DefaultWeight
		}
		d := methodDistribution(r, vocab)
		for _, l := range vocab {
			blend[l] += w * d[l]
		}
	}
	blend = blend.Normalize()
	regime, conf := blend.Argmax(vocab)

	c := Consensus{
		Regime:        regime,
		Confidence:    conf,
		Probabilities: blend,
		Agreement:     make(map[string]bool, len(results)),
		Methods:       make([]string, 0, len(results)),
	}
	agree := 0
	for _, r := range results {
		ok := individualLabel(r, vocab) == regime
		c.Agreement[r.Method] = ok
		c.Methods = append(c.Methods, r.Method)
		if ok {
			agree++
		}
	}
	c.AgreementRatio = float64(agree) / float64(len(results))
	c.Unanimous = agree == len(results)
	return c, nil
}

// CombineFromStates weighs each method's result by the configured table.
// Methods are combined in sorted name order.
func (e *Ensemble) CombineFromStates(states map[string]core.Result) (Consensus, error) {
	return e.Combine(e.fromStates(states))
}

func (e *Ensemble) fromStates(states map[string]core.Result) []MethodResult {
	names := make([]string, 0, len(states))
	for m := range states {
		names = append(names, m)
	}
	sort.Strings(names)

	out := make([]MethodResult, 0, len(names))
	for _, m := range names {
		r := states[m]
		out = append(out, MethodResult{
			Method:        m,
			Regime:        r.Regime,
			Confidence:    r.Confidence,
			Probabilities: r.Probabilities,
			Weight:        e.WeightFor(m),
		})
	}
	return out
}

// vocabulary is the canonical labels plus any other label mentioned by
// the results, in canonical order.
func vocabulary(results []MethodResult) []core.Regime {
	seen := make(map[core.Regime]bool)
	vocab := append([]core.Regime(nil), core.CanonicalRegimes...)
	for _, l := range vocab {
		seen[l] = true
	}
	add := func(l core.Regime) {
		if l != "" && !seen[l] {
			seen[l] = true
			vocab = append(vocab, l)
		}
	}
	for _, r := range results {
		add(r.Regime)
		for l := range r.Probabilities {
			add(l)
		}
	}
	core.SortRegimes(vocab)
	return vocab
}

// methodDistribution returns r's own normalized distribution, or one
// synthesized from its label and confidence.
func methodDistribution(r MethodResult, vocab []core.Regime) core.Distribution {
	if len(r.Probabilities) > 0 && r.Probabilities.Sum() > 0 {
		return r.Probabilities.Clone().Normalize()
	}

	conf := min(max(r.Confidence, 0), 1)
	if conf == 0 || r.Regime == "" || len(vocab) < 2 {
		return core.Uniform(vocab)
	}
	rest := (1 - conf) / float64(len(vocab)-1)
	d := make(core.Distribution, len(vocab))
	for _, l := range vocab {
		d[l] = rest
	}
	d[r.Regime] = conf
	return d
}

func individualLabel(r MethodResult, vocab []core.Regime) core.Regime {
	if r.Regime != "" {
		return r.Regime
	}
	l, _ := methodDistribution(r, vocab).Argmax(vocab)
	return l
}
