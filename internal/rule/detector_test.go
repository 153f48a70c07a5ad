package rule

import (
	"errors"
	"math"
	"testing"

	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/ghantakiran/axion-stock-sub001/internal/indicator"
)

func constant(n int, r float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = r
	}
	return out
}

func mustDetector(t *testing.T) *Detector {
	t.Helper()
	d, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return d
}

func TestDetect_Uptrend(t *testing.T) {
	d := mustDetector(t)
	res, err := d.Detect(constant(40, 0.005), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Regime != core.RegimeBull {
		t.Errorf("expected bull regime, got %s", res.Regime)
	}
	if math.Abs(res.Confidence-1) > 1e-12 {
		t.Errorf("expected unanimous votes, got confidence %f", res.Confidence)
	}
	if res.Duration != 40 {
		t.Errorf("expected duration 40, got %d", res.Duration)
	}
}

func TestDetect_Downtrend(t *testing.T) {
	d := mustDetector(t)
	res, err := d.Detect(constant(40, -0.005), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Regime != core.RegimeBear {
		t.Errorf("expected bear regime, got %s", res.Regime)
	}
}

func TestDetect_Flat(t *testing.T) {
	d := mustDetector(t)
	res, err := d.Detect(constant(30, 0), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Regime != core.RegimeSideways {
		t.Errorf("expected sideways regime, got %s", res.Regime)
	}
}

func TestVote_CrisisOnVolatileSelloff(t *testing.T) {
	d := mustDetector(t)
	window := make([]float64, 20)
	for i := range window {
		window[i] = -0.01 + 0.05*math.Pow(-1, float64(i))
	}

	v := d.Vote(window)
	if v.Trend != core.RegimeBear {
		t.Errorf("expected bear trend vote, got %s", v.Trend)
	}
	if v.Volatility != core.RegimeCrisis {
		t.Errorf("expected crisis volatility vote, got %s (vol %.2f)", v.Volatility, v.AnnualizedVol)
	}

	dist := d.distribution(v)
	if dist[core.RegimeCrisis] < 0.3-1e-12 {
		t.Errorf("expected crisis share of at least 0.3, got %f", dist[core.RegimeCrisis])
	}
}

func TestDetect_InsufficientData(t *testing.T) {
	d := mustDetector(t)
	res, err := d.Detect(constant(20, 0.01), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsUnknown() {
		t.Errorf("expected unknown result, got %+v", res)
	}
}

func TestDetectHistory_Shape(t *testing.T) {
	d := mustDetector(t)
	returns := append(constant(30, 0.006), constant(30, -0.006)...)
	h, err := d.DetectHistory(returns, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Len() != len(returns) {
		t.Fatalf("expected %d labels, got %d", len(returns), h.Len())
	}
	for i, dist := range h.Probabilities {
		if math.Abs(dist.Sum()-1) > 1e-9 {
			t.Errorf("step %d: distribution sums to %f", i, dist.Sum())
		}
	}
	if h.Labels[0] != core.RegimeBull || h.Labels[len(returns)-1] != core.RegimeBear {
		t.Errorf("expected bull then bear, got %s ... %s", h.Labels[0], h.Labels[len(returns)-1])
	}
}

func TestDetectHistory_VolatilityLengthMismatch(t *testing.T) {
	d := mustDetector(t)
	_, err := d.DetectHistory(constant(30, 0), constant(5, 0))
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	bad := []func(*Config){
		func(c *Config) { c.Lookback = 1 },
		func(c *Config) { c.FastPeriod = 20 },
		func(c *Config) { c.SlowPeriod = 30 },
		func(c *Config) { c.TrendThreshold = 0 },
		func(c *Config) { c.CrisisVolatility = -1 },
		func(c *Config) { c.TrendWeight = -0.1 },
		func(c *Config) { c.TrendWeight, c.MomentumWeight, c.VolatilityWeight = 0, 0, 0 },
	}
	for i, mutate := range bad {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := cfg.Validate(); !errors.Is(err, core.ErrConfigInvalid) {
			t.Errorf("case %d: expected config error, got %v", i, err)
		}
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestVote_PriceDerivedReturns(t *testing.T) {
	prices := []float64{100}
	for i := 0; i < 30; i++ {
		step := 1.006
		if i%3 == 2 {
			step = 0.997
		}
		prices = append(prices, prices[len(prices)-1]*step)
	}
	d := mustDetector(t)
	v := d.Vote(indicator.SimpleReturns(prices))

	want := prices[len(prices)-1]/prices[0] - 1
	if math.Abs(v.CumulativeReturn-want) > 1e-12 {
		t.Errorf("cumulative return %f, want price ratio %f", v.CumulativeReturn, want)
	}
	if v.Trend != core.RegimeBull {
		t.Errorf("expected bull trend for a %.1f%% rise, got %s", want*100, v.Trend)
	}
}
