// internal/llm/factory/factory_test.go
package factory

import (
	"errors"
	"testing"
	"time"

	"github.com/ghantakiran/axion-stock-sub001/internal/config"
	"github.com/ghantakiran/axion-stock-sub001/internal/core"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.LLMConfig
		wantName string
		wantErr  *core.Error
	}{
		{
			name: "claude",
			cfg: config.LLMConfig{
				Provider: "claude",
				Timeout:  30 * time.Second,
				Claude:   config.ClaudeConfig{APIKey: "test-key"},
			},
			wantName: "claude",
		},
		{
			name: "openai with custom model",
			cfg: config.LLMConfig{
				Provider: "openai",
				OpenAI:   config.OpenAIConfig{APIKey: "test-key", Model: "gpt-4o-mini"},
			},
			wantName: "openai",
		},
		{
			name: "ollama",
			cfg: config.LLMConfig{
				Provider: "ollama",
				Ollama:   config.OllamaConfig{Endpoint: "http://localhost:11434", Model: "llama3"},
			},
			wantName: "ollama",
		},
		{
			name:    "claude without key",
			cfg:     config.LLMConfig{Provider: "claude"},
			wantErr: core.ErrConfigMissing,
		},
		{
			name:    "openai without key",
			cfg:     config.LLMConfig{Provider: "openai"},
			wantErr: core.ErrConfigMissing,
		},
		{
			name:    "unknown provider",
			cfg:     config.LLMConfig{Provider: "bard"},
			wantErr: core.ErrConfigInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("New() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("expected %s provider, got %s", tt.wantName, p.Name())
			}
		})
	}
}

func TestNew_Disabled(t *testing.T) {
	p, err := New(config.LLMConfig{})
	if err != nil || p != nil {
		t.Errorf("expected (nil, nil) for empty provider, got (%v, %v)", p, err)
	}
}
