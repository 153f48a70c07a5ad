// internal/llm/factory/factory.go

// Package factory builds the configured LLM provider.
package factory

import (
	"github.com/ghantakiran/axion-stock-sub001/internal/config"
	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/ghantakiran/axion-stock-sub001/internal/llm"
	"github.com/ghantakiran/axion-stock-sub001/internal/llm/claude"
	"github.com/ghantakiran/axion-stock-sub001/internal/llm/ollama"
	"github.com/ghantakiran/axion-stock-sub001/internal/llm/openai"
)

// New creates an LLM provider based on configuration. An empty
// provider means commentary is disabled and (nil, nil) is returned.
func New(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "claude":
		return claude.New(cfg.Claude.APIKey, cfg.Claude.Model, claude.WithTimeout(cfg.Timeout))
	case "openai":
		return openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	case "ollama":
		return ollama.New(cfg.Ollama.Endpoint, cfg.Ollama.Model, ollama.WithTimeout(cfg.Timeout))
	default:
		return nil, core.Errorf(core.ErrConfigInvalid, "unknown llm provider %q", cfg.Provider)
	}
}
