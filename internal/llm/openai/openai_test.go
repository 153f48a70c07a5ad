// internal/llm/openai/openai_test.go
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/ghantakiran/axion-stock-sub001/internal/llm"
)

func TestProvider_ImplementsInterface(t *testing.T) {
	var _ llm.Provider = (*Provider)(nil)
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New("", "model")
	if !errors.Is(err, core.ErrConfigMissing) {
		t.Errorf("expected ErrConfigMissing, got %v", err)
	}
}

func TestNew_DefaultModel(t *testing.T) {
	p, err := New("test-key", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.model != DefaultModel {
		t.Errorf("expected default model %s, got %s", DefaultModel, p.model)
	}
}

func TestToMessages_SystemFirst(t *testing.T) {
	msgs := toMessages(llm.ChatRequest{
		SystemPrompt: "sys",
		Messages:     []llm.Message{llm.UserMessage("q"), {Role: llm.RoleAssistant, Content: "a"}},
	})
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Role != "system" || msgs[1].Role != "user" || msgs[2].Role != "assistant" {
		t.Errorf("unexpected roles %+v", msgs)
	}
}

func TestChat_CompatibleEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if _, ok := body["response_format"]; !ok {
			t.Error("expected response_format in JSON mode")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"summary\":\"ok\"}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":7,"completion_tokens":3}}`))
	}))
	defer srv.Close()

	p, err := New("test-key", "", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := p.Chat(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{llm.UserMessage("hi")},
		JSONMode: true,
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Content != `{"summary":"ok"}` || resp.Usage.InputTokens != 7 || resp.FinishReason != "stop" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestChat_ErrorIsCoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"nope"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, _ := New("test-key", "", WithBaseURL(srv.URL))
	_, err := p.Chat(context.Background(), llm.ChatRequest{Messages: []llm.Message{llm.UserMessage("hi")}})
	if !errors.Is(err, core.ErrLLMFailed) {
		t.Errorf("expected ErrLLMFailed, got %v", err)
	}
}
