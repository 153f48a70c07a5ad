package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/ghantakiran/axion-stock-sub001/internal/notifier"
)

func TestWebhook_ImplementsNotifier(t *testing.T) {
	var _ notifier.Notifier = (*Webhook)(nil)
}

func TestWebhook_Name(t *testing.T) {
	if w := New("", "http://example.com/hook", nil); w.Name() != "webhook" {
		t.Errorf("expected 'webhook', got %s", w.Name())
	}
	if w := New("ops", "http://example.com/hook", nil); w.Name() != "ops" {
		t.Errorf("expected 'ops', got %s", w.Name())
	}
}

func TestWebhook_Init_RequiresURL(t *testing.T) {
	w := &Webhook{}
	err := w.Init(notifier.Config{Params: map[string]any{}})
	if !errors.Is(err, core.ErrConfigMissing) {
		t.Errorf("expected ErrConfigMissing, got %v", err)
	}
}

func TestWebhook_Init_WithURL(t *testing.T) {
	w := &Webhook{}
	err := w.Init(notifier.Config{
		Params: map[string]any{
			"url":     "http://example.com/hook",
			"headers": map[string]any{"X-Token": "abc"},
		},
	})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if w.url != "http://example.com/hook" {
		t.Errorf("expected url, got %s", w.url)
	}
	if w.headers["X-Token"] != "abc" {
		t.Errorf("expected header from params, got %v", w.headers)
	}
}

func TestWebhook_Send(t *testing.T) {
	var receivedPayload map[string]any
	var token string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = r.Header.Get("X-Token")
		json.NewDecoder(r.Body).Decode(&receivedPayload)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	w := New("", server.URL, map[string]string{"X-Token": "abc"})

	err := w.Send(context.Background(), notifier.Event{
		Symbol:     "SPY",
		Previous:   core.RegimeBull,
		Current:    core.RegimeBear,
		Confidence: 0.7,
		DetectedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receivedPayload["type"] != "regime_change" {
		t.Errorf("expected type regime_change, got %v", receivedPayload["type"])
	}
	if receivedPayload["symbol"] != "SPY" || receivedPayload["current"] != "bear" {
		t.Errorf("unexpected payload %v", receivedPayload)
	}
	if token != "abc" {
		t.Errorf("expected header forwarded, got %q", token)
	}
}

func TestWebhook_SendBatch(t *testing.T) {
	var receivedPayload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&receivedPayload)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	w := New("", server.URL, nil)
	events := []notifier.Event{
		{Symbol: "SPY", Current: core.RegimeBear},
		{Symbol: "QQQ", Current: core.RegimeBull},
	}
	if err := w.SendBatch(context.Background(), events); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receivedPayload["type"] != "batch" {
		t.Errorf("expected type batch, got %v", receivedPayload["type"])
	}
	if receivedPayload["count"].(float64) != 2 {
		t.Errorf("expected count 2, got %v", receivedPayload["count"])
	}
}

func TestWebhook_SendBatch_Empty(t *testing.T) {
	w := New("", "http://invalid.invalid", nil)
	if err := w.SendBatch(context.Background(), nil); err != nil {
		t.Errorf("empty batch should be a no-op, got %v", err)
	}
}

func TestWebhook_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	w := New("", server.URL, nil)
	err := w.Send(context.Background(), notifier.Event{Symbol: "SPY"})
	if !errors.Is(err, core.ErrNotifyFailed) {
		t.Errorf("expected ErrNotifyFailed, got %v", err)
	}
}
