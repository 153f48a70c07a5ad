// Package webhook posts regime change events as JSON.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/ghantakiran/axion-stock-sub001/internal/notifier"
)

const defaultTimeout = 30 * time.Second

// Webhook implements notifier.Notifier for HTTP endpoints.
type Webhook struct {
	name    string
	url     string
	headers map[string]string
	client  *http.Client
}

// New creates a webhook notifier. name defaults to "webhook".
func New(name, url string, headers map[string]string) *Webhook {
	if name == "" {
		name = "webhook"
	}
	return &Webhook{
		name:    name,
		url:     url,
		headers: headers,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

func (w *Webhook) Name() string { return w.name }

// Init reads url and headers from cfg.Params. Headers decoded from
// config files arrive as map[string]any.
func (w *Webhook) Init(cfg notifier.Config) error {
	if url, ok := cfg.Params["url"].(string); ok {
		w.url = url
	}
	switch h := cfg.Params["headers"].(type) {
	case map[string]string:
		w.headers = h
	case map[string]any:
		w.headers = make(map[string]string, len(h))
		for k, v := range h {
			w.headers[k] = fmt.Sprint(v)
		}
	}

	if w.url == "" {
		return core.Errorf(core.ErrConfigMissing, "webhook: url is required")
	}
	if w.name == "" {
		w.name = "webhook"
	}
	if w.client == nil {
		w.client = &http.Client{Timeout: defaultTimeout}
	}
	return nil
}

type payload struct {
	Type string `json:"type"`
	notifier.Event
}

type batchPayload struct {
	Type   string           `json:"type"`
	Count  int              `json:"count"`
	Events []notifier.Event `json:"events"`
}

func (w *Webhook) Send(ctx context.Context, e notifier.Event) error {
	return w.post(ctx, payload{Type: "regime_change", Event: e})
}

func (w *Webhook) SendBatch(ctx context.Context, events []notifier.Event) error {
	if len(events) == 0 {
		return nil
	}
	return w.post(ctx, batchPayload{Type: "batch", Count: len(events), Events: events})
}

func (w *Webhook) post(ctx context.Context, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return core.WrapError(core.ErrNotifyFailed, fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return core.WrapError(core.ErrNotifyFailed, err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return core.WrapError(core.ErrNotifyFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return core.Errorf(core.ErrNotifyFailed, "%s returned %d", w.name, resp.StatusCode)
	}
	return nil
}
