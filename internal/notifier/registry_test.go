package notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/ghantakiran/axion-stock-sub001/internal/ensemble"
	"github.com/ghantakiran/axion-stock-sub001/internal/pipeline"
	"github.com/ghantakiran/axion-stock-sub001/internal/transition"
)

type mockNotifier struct {
	name       string
	sendCalled int
	batchCalls int
	shouldFail bool
}

func (m *mockNotifier) Name() string { return m.name }

func (m *mockNotifier) Init(cfg Config) error { return nil }

func (m *mockNotifier) Send(ctx context.Context, e Event) error {
	m.sendCalled++
	if m.shouldFail {
		return errors.New("send failed")
	}
	return nil
}

func (m *mockNotifier) SendBatch(ctx context.Context, events []Event) error {
	m.batchCalls++
	if m.shouldFail {
		return errors.New("batch send failed")
	}
	return nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	mock := &mockNotifier{name: "test"}
	if err := r.Register(mock); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := r.Register(mock); !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("expected ErrConfigInvalid for duplicate, got %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 notifier, got %d", r.Len())
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockNotifier{name: "test"})

	n, err := r.Get("test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Name() != "test" {
		t.Errorf("expected test, got %s", n.Name())
	}

	if _, err := r.Get("missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistry_GetAllSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockNotifier{name: "b"})
	r.Register(&mockNotifier{name: "a"})

	all := r.GetAll()
	if len(all) != 2 || all[0].Name() != "a" || all[1].Name() != "b" {
		t.Errorf("expected [a b], got %v", all)
	}
}

func TestRegistry_NotifyAll(t *testing.T) {
	r := NewRegistry()
	ok := &mockNotifier{name: "ok"}
	bad := &mockNotifier{name: "bad", shouldFail: true}
	r.Register(ok)
	r.Register(bad)

	errs := r.NotifyAll(context.Background(), Event{Symbol: "SPY"})
	if ok.sendCalled != 1 || bad.sendCalled != 1 {
		t.Errorf("expected every notifier called once, got ok=%d bad=%d", ok.sendCalled, bad.sendCalled)
	}
	if len(errs) != 1 || errs["bad"] == nil {
		t.Errorf("expected only bad to fail, got %v", errs)
	}

	errs = r.NotifyAllBatch(context.Background(), []Event{{Symbol: "SPY"}})
	if ok.batchCalls != 1 || len(errs) != 1 {
		t.Errorf("unexpected batch result calls=%d errs=%v", ok.batchCalls, errs)
	}
}

func report(regime core.Regime, conf float64) *pipeline.Report {
	r := &pipeline.Report{
		Symbol:      "SPY",
		GeneratedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Result: core.Result{
			Regime:        regime,
			Confidence:    conf,
			Probabilities: core.Distribution{regime: conf},
		},
	}
	if conf == 0 {
		r.Result = core.Unknown(core.MethodEnsemble)
	}
	return r
}

func TestChangeEvent(t *testing.T) {
	prev := report(core.RegimeBull, 0.8)
	cur := report(core.RegimeBear, 0.6)
	cur.Consensus = &ensemble.Consensus{AgreementRatio: 2.0 / 3.0}
	cur.Transitions = &transition.Report{Next: core.RegimeBear}

	e, ok := ChangeEvent(prev, cur)
	if !ok {
		t.Fatal("expected a change event")
	}
	if e.Previous != core.RegimeBull || e.Current != core.RegimeBear || e.Next != core.RegimeBear {
		t.Errorf("unexpected event %+v", e)
	}
	if e.Agreement != 2.0/3.0 || e.Confidence != 0.6 {
		t.Errorf("unexpected event scores %+v", e)
	}

	if _, ok := ChangeEvent(prev, report(core.RegimeBull, 0.9)); ok {
		t.Error("same regime should not produce an event")
	}
	if _, ok := ChangeEvent(nil, cur); ok {
		t.Error("missing previous report should not produce an event")
	}
	if _, ok := ChangeEvent(prev, report(core.RegimeSideways, 0)); ok {
		t.Error("unknown result should not produce an event")
	}
}
