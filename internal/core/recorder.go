package core

// Recorder receives model lifecycle observations. metrics.Registry
// implements it; detectors default to NopRecorder.
type Recorder interface {
	RecordFit(method, status string, seconds float64)
	RecordIterations(method string, iterations int)
	RecordClassification(method string, regime Regime)
}

// NopRecorder discards every observation.
type NopRecorder struct{}

func (NopRecorder) RecordFit(string, string, float64) {}
func (NopRecorder) RecordIterations(string, int) {}
func (NopRecorder) RecordClassification(string, Regime) {}

// Fit status values passed to Recorder.RecordFit.
const (
	FitStatusOK           = "ok"
	FitStatusInsufficient = "insufficient"
	FitStatusFailed       = "failed"
)
