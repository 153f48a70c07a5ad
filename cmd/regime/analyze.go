package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ghantakiran/axion-stock-sub001/internal/commentary"
	"github.com/ghantakiran/axion-stock-sub001/internal/config"
	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/ghantakiran/axion-stock-sub001/internal/llm/factory"
	"github.com/ghantakiran/axion-stock-sub001/internal/notifier"
	"github.com/ghantakiran/axion-stock-sub001/internal/notifier/webhook"
	"github.com/ghantakiran/axion-stock-sub001/internal/pipeline"
	"github.com/ghantakiran/axion-stock-sub001/internal/series"
	"github.com/ghantakiran/axion-stock-sub001/internal/storage/archive"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type analyzeOptions struct {
	input   string
	method  string
	horizon int
	archive bool
	explain bool
	notify  bool
	json    bool
}

var analyzeOpts analyzeOptions

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Classify the regime of a return series",
	Long: `Run the hmm, cluster and rule methods over a CSV or JSON series,
combine them into a consensus and forecast the next regimes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()
		return runAnalyze(cmd.Context(), cfg, log, analyzeOpts, cmd.OutOrStdout())
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOpts.input, "input", "i", "", "series file (.csv or .json, required)")
	analyzeCmd.Flags().StringVarP(&analyzeOpts.method, "method", "m", "all", "method to run: all, hmm, cluster or rule")
	analyzeCmd.Flags().IntVar(&analyzeOpts.horizon, "horizon", 0, "forecast horizon (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.archive, "archive", false, "archive the report")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.explain, "explain", false, "ask the configured llm for commentary")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.notify, "notify", false, "notify configured webhooks when the regime changed since the last archived report")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.json, "json", false, "print the report as JSON")

	analyzeCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(analyzeCmd)
}

type analyzeOutput struct {
	Report     *pipeline.Report       `json:"report"`
	Commentary *commentary.Commentary `json:"commentary,omitempty"`
	Archived   string                 `json:"archived,omitempty"`
	Change     *notifier.Event        `json:"change,omitempty"`
}

func runAnalyze(ctx context.Context, cfg *config.Config, log *zap.Logger, opts analyzeOptions, out io.Writer) error {
	s, err := series.Load(opts.input)
	if err != nil {
		return err
	}

	engine, err := pipeline.NewDefault(cfg.ToPipeline(), log.Named("pipeline"), nil)
	if err != nil {
		return err
	}

	req := pipeline.Request{Horizon: opts.horizon}
	if m := strings.ToLower(opts.method); m != "" && m != "all" {
		req.Methods = []string{m}
	}

	report, err := engine.AnalyzeWith(ctx, s, req)
	if err != nil {
		return fmt.Errorf("analyzing %s: %w", s.Symbol, err)
	}
	result := analyzeOutput{Report: report}

	if opts.explain {
		provider, err := factory.New(cfg.LLM)
		if err != nil {
			return err
		}
		if provider == nil {
			return core.Errorf(core.ErrConfigMissing, "--explain requires llm.provider in config")
		}
		c, err := commentary.New(provider, commentary.DefaultConfig(), log.Named("commentary")).Explain(ctx, report)
		if err != nil {
			log.Warn("commentary unavailable", zap.Error(err))
		} else {
			result.Commentary = c
		}
	}

	if opts.archive || opts.notify || cfg.Archive.Enabled {
		storage, err := newArchive(cfg.Archive)
		if err != nil {
			return err
		}
		store := archive.NewReportStore(storage, archive.WithLogger(log.Named("archive")))

		prev, err := store.Latest(ctx, report.Symbol)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			return err
		}
		p, err := store.Save(ctx, report)
		if err != nil {
			return err
		}
		result.Archived = p

		if e, changed := notifier.ChangeEvent(prev, report); changed {
			result.Change = &e
			if opts.notify {
				notifyChange(ctx, cfg.Notify, log, e)
			}
		}
	}

	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printReport(out, result)
	return nil
}

func notifyChange(ctx context.Context, cfg config.NotifyConfig, log *zap.Logger, e notifier.Event) {
	reg := notifier.NewRegistry()
	for _, w := range cfg.Webhooks {
		if err := reg.Register(webhook.New(w.Name, w.URL, w.Headers)); err != nil {
			log.Warn("skipping webhook", zap.Error(err))
		}
	}
	if reg.Len() == 0 {
		log.Warn("regime changed but no notifiers configured", zap.String("symbol", e.Symbol))
		return
	}
	for name, err := range reg.NotifyAll(ctx, e) {
		log.Error("notification failed", zap.String("notifier", name), zap.Error(err))
	}
}

// newArchive builds the configured backend; type defaults to localfs.
func newArchive(cfg config.ArchiveConfig) (archive.Storage, error) {
	switch cfg.Type {
	case "", "localfs":
		return archive.NewLocalFS(cfg.Path)
	case "s3":
		return archive.NewS3(archive.S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
	default:
		return nil, core.Errorf(core.ErrConfigInvalid, "unknown archive type %q", cfg.Type)
	}
}
