package metrics

import (
	"testing"

	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func family(t *testing.T, reg *Registry, name string) *dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestNewRegistry_RuntimeCollectors(t *testing.T) {
	var g prometheus.Gatherer = NewRegistry()
	mfs, err := g.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(mfs) == 0 {
		t.Error("expected go runtime metrics")
	}
}

func TestStatusToString(t *testing.T) {
	tests := map[int]string{
		100: "1xx", 200: "2xx", 204: "2xx", 302: "3xx",
		400: "4xx", 422: "4xx", 500: "5xx", 504: "5xx",
	}
	for status, want := range tests {
		if got := statusToString(status); got != want {
			t.Errorf("statusToString(%d) = %s, want %s", status, got, want)
		}
	}
}

func TestRegistry_RecordRequest(t *testing.T) {
	reg := NewRegistry()
	reg.RecordRequest("POST", "/api/v1/regime/detect", 200, 0.123)
	reg.RecordRequest("POST", "/api/v1/regime/detect", 400, 0.001)

	if v := counterValue(t, reg, "http_requests_total", map[string]string{"status": "2xx"}); v != 1 {
		t.Errorf("expected one 2xx request, got %v", v)
	}
	if v := counterValue(t, reg, "http_requests_total", map[string]string{"status": "4xx"}); v != 1 {
		t.Errorf("expected one 4xx request, got %v", v)
	}

	mf := family(t, reg, "http_request_duration_seconds")
	if mf == nil || len(mf.GetMetric()) != 1 {
		t.Fatalf("expected one duration series, got %v", mf)
	}
	hist := mf.GetMetric()[0].GetHistogram()
	if hist.GetSampleCount() != 2 {
		t.Errorf("expected 2 samples, got %d", hist.GetSampleCount())
	}
	if sum := hist.GetSampleSum(); sum < 0.12 || sum > 0.13 {
		t.Errorf("expected sample sum ~0.124, got %v", sum)
	}
}

func TestRegistry_InFlight(t *testing.T) {
	reg := NewRegistry()
	reg.InFlightInc()
	reg.InFlightInc()
	reg.InFlightDec()

	mf := family(t, reg, "http_requests_in_flight")
	if mf == nil {
		t.Fatal("expected http_requests_in_flight metric")
	}
	if v := mf.GetMetric()[0].GetGauge().GetValue(); v != 1 {
		t.Errorf("expected in-flight gauge to be 1, got %v", v)
	}
}

func counterValue(t *testing.T, reg *Registry, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			match := true
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					match = false
				}
			}
			if match {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestRegistry_RegimeMetrics(t *testing.T) {
	reg := NewRegistry()

	reg.RecordFit(core.MethodHMM, core.FitStatusOK, 0.02)
	reg.RecordFit(core.MethodHMM, core.FitStatusInsufficient, 0)
	reg.RecordIterations(core.MethodHMM, 12)
	reg.RecordClassification(core.MethodCluster, core.RegimeBear)
	reg.RecordClassification(core.MethodCluster, core.RegimeBear)
	reg.RecordConsensus(0.5)
	reg.RecordAnalysis(0.4)
	reg.RecordArchive("ok")

	if v := counterValue(t, reg, "regime_fits_total", map[string]string{"method": "hmm", "status": "ok"}); v != 1 {
		t.Errorf("expected 1 ok fit, got %v", v)
	}
	if v := counterValue(t, reg, "regime_classifications_total", map[string]string{"method": "cluster", "regime": "bear"}); v != 2 {
		t.Errorf("expected 2 bear classifications, got %v", v)
	}
	if v := counterValue(t, reg, "regime_reports_archived_total", map[string]string{"status": "ok"}); v != 1 {
		t.Errorf("expected 1 archived report, got %v", v)
	}

	for _, name := range []string{
		"regime_fit_duration_seconds",
		"regime_em_iterations",
		"regime_consensus_agreement",
		"regime_analysis_duration_seconds",
	} {
		if family(t, reg, name) == nil {
			t.Errorf("expected %s metric", name)
		}
	}
}
