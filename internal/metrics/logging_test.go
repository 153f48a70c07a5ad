package metrics

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func serveLogged(t *testing.T, req *http.Request, status int) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	logger := zap.New(zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(&buf),
		zapcore.InfoLevel,
	))

	h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log: %v, log: %s", err, buf.String())
	}
	return w, entry
}

func TestLoggingMiddleware_Fields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/regime/analyze", nil)
	req.RemoteAddr = "10.0.0.1:54321"

	w, entry := serveLogged(t, req, http.StatusBadRequest)

	if entry["method"] != "POST" {
		t.Errorf("expected method POST, got %v", entry["method"])
	}
	if entry["path"] != "/api/v1/regime/analyze" {
		t.Errorf("unexpected path %v", entry["path"])
	}
	if entry["status"].(float64) != 400 {
		t.Errorf("expected status 400, got %v", entry["status"])
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("expected duration_ms in log entry")
	}
	if entry["client_ip"] != "10.0.0.1:54321" {
		t.Errorf("unexpected client_ip %v", entry["client_ip"])
	}
	if id := w.Header().Get(RequestIDHeader); id == "" || entry["request_id"] != id {
		t.Errorf("request id header %q does not match log %v", id, entry["request_id"])
	}
}

func TestLoggingMiddleware_ReusesRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")

	w, entry := serveLogged(t, req, http.StatusOK)

	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("expected caller id to be echoed, got %q", got)
	}
	if entry["request_id"] != "abc-123" {
		t.Errorf("expected logged id abc-123, got %v", entry["request_id"])
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		forward string
		want    string
	}{
		{"remote addr", "", "10.0.0.1:54321"},
		{"single forward", "203.0.113.50", "203.0.113.50"},
		{"forward chain", " 203.0.113.50 , 10.1.1.1", "203.0.113.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "10.0.0.1:54321"
			if tt.forward != "" {
				req.Header.Set("X-Forwarded-For", tt.forward)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
