// internal/storage/archive/reports.go
package archive

import (
	"context"
	"encoding/json"
	"path"
	"strings"
	"time"

	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/ghantakiran/axion-stock-sub001/internal/pipeline"
	"go.uber.org/zap"
)

const (
	reportsRoot = "reports"
	// Fixed width so lexical order is chronological.
	timestampLayout = "20060102T150405.000000000Z"
)

// Recorder counts archive writes by status.
type Recorder interface {
	RecordArchive(status string)
}

type nopRecorder struct{}

func (nopRecorder) RecordArchive(string) {}

// ReportOption configures a ReportStore.
type ReportOption func(*ReportStore)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ReportOption {
	return func(s *ReportStore) { s.logger = l }
}

// WithRecorder sets the archive metrics recorder.
func WithRecorder(r Recorder) ReportOption {
	return func(s *ReportStore) { s.recorder = r }
}

// ReportStore persists analysis reports as JSON under
// reports/<symbol>/<UTC timestamp>.json.
type ReportStore struct {
	storage  Storage
	logger   *zap.Logger
	recorder Recorder
	now      func() time.Time
}

// NewReportStore wraps a storage backend.
func NewReportStore(storage Storage, opts ...ReportOption) *ReportStore {
	s := &ReportStore{
		storage:  storage,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReportPath returns the archive path for a report of symbol at t.
func ReportPath(symbol string, t time.Time) string {
	return path.Join(reportsRoot, symbolDir(symbol), t.UTC().Format(timestampLayout)+".json")
}

func symbolDir(symbol string) string {
	s := strings.TrimSpace(symbol)
	s = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(s)
	if s == "" {
		return "unknown"
	}
	return s
}

// Save writes r and returns its path. A zero GeneratedAt is stamped
// with the current time.
func (s *ReportStore) Save(ctx context.Context, r *pipeline.Report) (string, error) {
	if r == nil {
		return "", core.Errorf(core.ErrInvalidInput, "nil report")
	}
	at := r.GeneratedAt
	if at.IsZero() {
		at = s.now()
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		s.recorder.RecordArchive("error")
		return "", core.WrapError(core.ErrArchiveFailed, err)
	}

	p := ReportPath(r.Symbol, at)
	if err := s.storage.Write(ctx, p, data); err != nil {
		s.recorder.RecordArchive("error")
		s.logger.Error("archive write failed", zap.String("path", p), zap.Error(err))
		return "", err
	}
	s.recorder.RecordArchive("ok")
	s.logger.Info("report archived", zap.String("symbol", r.Symbol), zap.String("path", p))
	return p, nil
}

// List returns the archived report paths for symbol, oldest first.
func (s *ReportStore) List(ctx context.Context, symbol string) ([]string, error) {
	paths, err := s.storage.List(ctx, path.Join(reportsRoot, symbolDir(symbol)))
	if err != nil {
		return nil, err
	}
	out := paths[:0]
	for _, p := range paths {
		if strings.HasSuffix(p, ".json") {
			out = append(out, p)
		}
	}
	return out, nil
}

// Load reads the report at p.
func (s *ReportStore) Load(ctx context.Context, p string) (*pipeline.Report, error) {
	data, err := s.storage.Read(ctx, p)
	if err != nil {
		return nil, err
	}
	var r pipeline.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, core.WrapError(core.ErrArchiveFailed, err)
	}
	return &r, nil
}

// Latest returns the most recent report for symbol, or an error
// matching core.ErrNotFound when none exists.
func (s *ReportStore) Latest(ctx context.Context, symbol string) (*pipeline.Report, error) {
	paths, err := s.List(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, core.Errorf(core.ErrNotFound, "no archived report for %q", symbol)
	}
	return s.Load(ctx, paths[len(paths)-1])
}
