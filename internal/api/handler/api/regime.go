// internal/api/handler/api/regime.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ghantakiran/axion-stock-sub001/internal/api/response"
	"github.com/ghantakiran/axion-stock-sub001/internal/commentary"
	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/ghantakiran/axion-stock-sub001/internal/ensemble"
	"github.com/ghantakiran/axion-stock-sub001/internal/pipeline"
	"github.com/ghantakiran/axion-stock-sub001/internal/series"
	"github.com/ghantakiran/axion-stock-sub001/internal/transition"
	"go.uber.org/zap"
)

// Explainer narrates a report.
type Explainer interface {
	Explain(ctx context.Context, r *pipeline.Report) (*commentary.Commentary, error)
}

// Archiver stores a report and returns where it was written.
type Archiver interface {
	Save(ctx context.Context, r *pipeline.Report) (string, error)
}

// RegimeHandler serves the regime classification endpoints.
type RegimeHandler struct {
	engine    *pipeline.Engine
	explainer Explainer
	archiver  Archiver
	logger    *zap.Logger
}

// NewRegimeHandler creates a regime handler. explainer and archiver may
// be nil.
func NewRegimeHandler(engine *pipeline.Engine, explainer Explainer, archiver Archiver, logger *zap.Logger) *RegimeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegimeHandler{engine: engine, explainer: explainer, archiver: archiver, logger: logger}
}

// AnalyzeRequest is the body of POST /api/v1/regime/analyze.
type AnalyzeRequest struct {
	Symbol       string    `json:"symbol"`
	Returns      []float64 `json:"returns"`
	Volatilities []float64 `json:"volatilities,omitempty"`
	Methods      []string  `json:"methods,omitempty"`
	Horizon      int       `json:"horizon,omitempty"`
	Explain      bool      `json:"explain,omitempty"`
	Archive      bool      `json:"archive,omitempty"`
}

// AnalyzeResponse wraps the report with optional commentary and the
// archive location.
type AnalyzeResponse struct {
	Report          *pipeline.Report       `json:"report"`
	Commentary      *commentary.Commentary `json:"commentary,omitempty"`
	CommentaryError string                 `json:"commentary_error,omitempty"`
	Archived        string                 `json:"archived,omitempty"`
	ArchiveError    string                 `json:"archive_error,omitempty"`
}

// Analyze runs every requested method and returns the full report.
func (h *RegimeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decode(r, &req); err != nil {
		response.Fail(w, err)
		return
	}
	if req.Explain && h.explainer == nil {
		response.Fail(w, core.Errorf(core.ErrConfigMissing, "commentary requires an llm provider"))
		return
	}
	if req.Archive && h.archiver == nil {
		response.Fail(w, core.Errorf(core.ErrConfigMissing, "archiving requires archive.enabled"))
		return
	}

	s := series.Series{Symbol: req.Symbol, Returns: req.Returns, Volatilities: req.Volatilities}
	report, err := h.engine.AnalyzeWith(r.Context(), s, pipeline.Request{Methods: req.Methods, Horizon: req.Horizon})
	if err != nil {
		h.logger.Warn("analysis failed", zap.String("symbol", req.Symbol), zap.Error(err))
		response.Fail(w, err)
		return
	}

	resp := AnalyzeResponse{Report: report}
	if req.Explain {
		c, err := h.explainer.Explain(r.Context(), report)
		if err != nil {
			resp.CommentaryError = err.Error()
		} else {
			resp.Commentary = c
		}
	}
	if req.Archive {
		p, err := h.archiver.Save(r.Context(), report)
		if err != nil {
			h.logger.Error("archiving report failed", zap.String("symbol", report.Symbol), zap.Error(err))
			resp.ArchiveError = err.Error()
		} else {
			resp.Archived = p
		}
	}
	response.JSON(w, http.StatusOK, resp)
}

// DetectRequest is the body of POST /api/v1/regime/detect.
type DetectRequest struct {
	Returns      []float64 `json:"returns"`
	Volatilities []float64 `json:"volatilities,omitempty"`
}

// Detect runs a single method named by the method query parameter.
// history=true returns the per-observation classification.
func (h *RegimeHandler) Detect(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Query().Get("method")
	if method == "" {
		response.Fail(w, core.Errorf(core.ErrInvalidInput, "method query parameter required"))
		return
	}
	history, _ := strconv.ParseBool(r.URL.Query().Get("history"))

	var req DetectRequest
	if err := decode(r, &req); err != nil {
		response.Fail(w, err)
		return
	}
	s := series.Series{Returns: req.Returns, Volatilities: req.Volatilities}
	if err := s.Validate(); err != nil {
		response.Fail(w, err)
		return
	}

	det, err := h.engine.NewDetector(method)
	if err != nil {
		response.Fail(w, err)
		return
	}

	if history {
		hist, err := det.DetectHistory(s.Returns, s.Vols())
		if err != nil {
			response.Fail(w, err)
			return
		}
		response.JSON(w, http.StatusOK, hist)
		return
	}

	res, err := det.Detect(s.Returns, s.Vols())
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}

// TransitionsRequest is the body of POST /api/v1/regime/transitions.
type TransitionsRequest struct {
	Labels  []core.Regime `json:"labels"`
	Returns []float64     `json:"returns,omitempty"`
	Horizon int           `json:"horizon,omitempty"`
}

// Transitions analyzes a realized label sequence.
func (h *RegimeHandler) Transitions(w http.ResponseWriter, r *http.Request) {
	var req TransitionsRequest
	if err := decode(r, &req); err != nil {
		response.Fail(w, err)
		return
	}
	report, err := h.engine.Analyzer().Analyze(req.Labels, req.Returns, req.Horizon)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, report)
}

// ForecastRequest is the body of POST /api/v1/regime/forecast. Current
// defaults to the last label.
type ForecastRequest struct {
	Labels  []core.Regime `json:"labels"`
	Current core.Regime   `json:"current,omitempty"`
	Horizon int           `json:"horizon,omitempty"`
}

// ForecastResponse is the forecast with the matrix it was derived from.
type ForecastResponse struct {
	Current  core.Regime         `json:"current"`
	Matrix   transition.Matrix   `json:"matrix"`
	Forecast []core.Distribution `json:"forecast"`
	Next     core.Regime         `json:"most_likely_next,omitempty"`
}

// Forecast propagates the current regime through the transition matrix
// estimated from labels.
func (h *RegimeHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	var req ForecastRequest
	if err := decode(r, &req); err != nil {
		response.Fail(w, err)
		return
	}
	if len(req.Labels) == 0 {
		response.Fail(w, core.Errorf(core.ErrInsufficientData, "labels required"))
		return
	}
	current := req.Current
	if current == "" {
		current = req.Labels[len(req.Labels)-1]
	}

	an := h.engine.Analyzer()
	m := an.ComputeMatrix(req.Labels)
	fc, err := an.Forecast(current, m, req.Horizon)
	if err != nil {
		response.Fail(w, err)
		return
	}
	resp := ForecastResponse{Current: current, Matrix: m, Forecast: fc}
	if next, _, ok := m.MostLikelyNext(current); ok {
		resp.Next = next
	}
	response.JSON(w, http.StatusOK, resp)
}

// EnsembleRequest is the body of POST /api/v1/regime/ensemble.
type EnsembleRequest struct {
	Results []ensemble.MethodResult `json:"results"`
}

// Ensemble combines caller-supplied method results.
func (h *RegimeHandler) Ensemble(w http.ResponseWriter, r *http.Request) {
	var req EnsembleRequest
	if err := decode(r, &req); err != nil {
		response.Fail(w, err)
		return
	}
	cmp, err := h.engine.Ensemble().CompareMethods(req.Results)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, cmp)
}

// Methods lists the registered detection methods.
func (h *RegimeHandler) Methods(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{"methods": h.engine.Methods()})
}

func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return core.Errorf(core.ErrInvalidInput, "request body required")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.Errorf(core.ErrInvalidInput, "request body exceeds %d bytes", tooLarge.Limit)
		}
		return core.WrapError(core.ErrInvalidInput, err)
	}
	return nil
}
