// Package commentary narrates a regime report through an LLM. It only
// reads the report; the classification is never altered.
package commentary

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/ghantakiran/axion-stock-sub001/internal/llm"
	"github.com/ghantakiran/axion-stock-sub001/internal/pipeline"
	"go.uber.org/zap"
)

// Commentary is the model's reading of a report.
type Commentary struct {
	Summary  string   `json:"summary"`
	Outlook  string   `json:"outlook"`
	Risks    []string `json:"risks"`
	Raw      string   `json:"-"`
	Provider string   `json:"provider"`
}

// Config tunes the completion request.
type Config struct {
	MaxTokens   int
	Temperature float64
	// ForecastSteps caps how many forecast steps are rendered.
	ForecastSteps int
}

// DefaultConfig returns the default completion settings.
func DefaultConfig() Config {
	return Config{MaxTokens: 1024, Temperature: 0.3, ForecastSteps: 3}
}

// Commentator asks an llm.Provider to explain reports.
type Commentator struct {
	llm    llm.Provider
	cfg    Config
	logger *zap.Logger
}

// New creates a commentator. A nil logger disables logging.
func New(provider llm.Provider, cfg Config, logger *zap.Logger) *Commentator {
	if cfg.ForecastSteps <= 0 {
		cfg.ForecastSteps = DefaultConfig().ForecastSteps
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Commentator{llm: provider, cfg: cfg, logger: logger}
}

// Explain builds a prompt from r and returns the model's commentary.
// Replies that are not JSON are returned as Summary verbatim.
func (c *Commentator) Explain(ctx context.Context, r *pipeline.Report) (*Commentary, error) {
	if r == nil {
		return nil, core.Errorf(core.ErrInvalidInput, "nil report")
	}
	if c.llm == nil {
		return nil, core.Errorf(core.ErrConfigMissing, "no llm provider configured")
	}

	resp, err := c.llm.Chat(ctx, llm.ChatRequest{
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{llm.UserMessage(c.buildPrompt(r))},
		MaxTokens:    c.cfg.MaxTokens,
		Temperature:  c.cfg.Temperature,
		JSONMode:     true,
	})
	if err != nil {
		c.logger.Warn("commentary request failed",
			zap.String("provider", c.llm.Name()),
			zap.String("symbol", r.Symbol),
			zap.Error(err),
		)
		return nil, core.WrapError(core.ErrLLMFailed, err)
	}

	c.logger.Debug("commentary received",
		zap.String("provider", c.llm.Name()),
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
	)

	out := parse(resp.Content)
	out.Provider = c.llm.Name()
	return out, nil
}

func parse(content string) *Commentary {
	var out Commentary
	if err := json.Unmarshal([]byte(extractJSON(content)), &out); err != nil || out.Summary == "" {
		return &Commentary{Summary: strings.TrimSpace(content), Raw: content}
	}
	out.Raw = content
	return &out
}

// extractJSON strips a fenced code block if the model added one.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

func (c *Commentator) buildPrompt(r *pipeline.Report) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## Symbol: %s\n\n", r.Symbol)
	fmt.Fprintf(&sb, "Observations: %d\n\n", r.Observations)

	sb.WriteString("## Consensus:\n")
	fmt.Fprintf(&sb, "- Regime: %s (confidence: %.2f, for %d observations)\n",
		r.Result.Regime, r.Result.Confidence, r.Result.Duration)
	if r.Consensus != nil {
		fmt.Fprintf(&sb, "- Agreement: %.0f%% of methods", r.Consensus.AgreementRatio*100)
		if r.Consensus.Unanimous {
			sb.WriteString(" (unanimous)")
		}
		sb.WriteString("\n")
	}
	for _, l := range r.Result.Probabilities.Labels() {
		fmt.Fprintf(&sb, "  - P(%s) = %.2f\n", l, r.Result.Probabilities[l])
	}
	sb.WriteString("\n")

	if len(r.Methods) > 0 {
		sb.WriteString("## Methods:\n")
		for _, name := range sortedKeys(r.Methods) {
			m := r.Methods[name]
			fmt.Fprintf(&sb, "- **%s**: %s (confidence: %.2f, duration: %d)\n",
				name, m.Result.Regime, m.Result.Confidence, m.Result.Duration)
		}
		sb.WriteString("\n")
	}

	if r.Comparison != nil && len(r.Comparison.Divergent) > 0 {
		fmt.Fprintf(&sb, "## Divergent methods: %s\n", strings.Join(r.Comparison.Divergent, ", "))
		if r.Comparison.Transitioning {
			sb.WriteString("Methods are split; the market may be transitioning.\n")
		}
		sb.WriteString("\n")
	}

	if t := r.Transitions; t != nil {
		sb.WriteString("## Transitions:\n")
		if t.Matrix.Index(t.Current) >= 0 {
			p := t.Matrix.Persistence(t.Current)
			fmt.Fprintf(&sb, "- Persistence of %s: %.2f (expected duration %.1f)\n",
				t.Current, p, t.Matrix.ExpectedDurations[t.Current])
		}
		if t.Next != "" {
			fmt.Fprintf(&sb, "- Most likely next regime: %s\n", t.Next)
		}
		for i, d := range t.Forecast {
			if i >= c.cfg.ForecastSteps {
				break
			}
			best, p := d.Argmax(t.Matrix.States)
			fmt.Fprintf(&sb, "- Step %d: %s (%.2f)\n", i+1, best, p)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Task:\n")
	sb.WriteString("Explain the current market regime in plain language.\n")
	sb.WriteString("Respond with JSON containing: summary, outlook, risks (list of strings).\n")

	return sb.String()
}

func sortedKeys(m map[string]pipeline.MethodReport) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

const systemPrompt = `You are a market regime analyst. You receive the output of a statistical regime classifier that combines a hidden Markov model, clustering and rule-based detection.

Do not reclassify the market. Explain the reported regime, how strongly the methods agree, and what the transition statistics imply for the next few periods.

Always respond with valid JSON in this format:
{
  "summary": "two or three sentences on the current regime",
  "outlook": "what the transition forecast suggests",
  "risks": ["risk 1", "risk 2"]
}

Be measured when the methods disagree or confidence is low.`
