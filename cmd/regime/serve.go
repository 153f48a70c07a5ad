package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghantakiran/axion-stock-sub001/internal/api"
	handler "github.com/ghantakiran/axion-stock-sub001/internal/api/handler/api"
	"github.com/ghantakiran/axion-stock-sub001/internal/commentary"
	"github.com/ghantakiran/axion-stock-sub001/internal/llm/factory"
	"github.com/ghantakiran/axion-stock-sub001/internal/metrics"
	"github.com/ghantakiran/axion-stock-sub001/internal/pipeline"
	"github.com/ghantakiran/axion-stock-sub001/internal/storage/archive"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the regime HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	var reg *metrics.Registry
	var recorder pipeline.Recorder
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
		recorder = reg
	}

	engine, err := pipeline.NewDefault(cfg.ToPipeline(), log.Named("pipeline"), recorder)
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	var explainer handler.Explainer
	provider, err := factory.New(cfg.LLM)
	if err != nil {
		return fmt.Errorf("creating llm provider: %w", err)
	}
	if provider != nil {
		explainer = commentary.New(provider, commentary.DefaultConfig(), log.Named("commentary"))
		log.Info("commentary enabled", zap.String("provider", provider.Name()))
	}

	var archiver handler.Archiver
	if cfg.Archive.Enabled {
		storage, err := newArchive(cfg.Archive)
		if err != nil {
			return fmt.Errorf("creating archive: %w", err)
		}
		opts := []archive.ReportOption{archive.WithLogger(log.Named("archive"))}
		if reg != nil {
			opts = append(opts, archive.WithRecorder(reg))
		}
		archiver = archive.NewReportStore(storage, opts...)
	}

	server, err := api.NewServer(api.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		APIKey:       cfg.Server.APIKey,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		MetricsPath:  cfg.Metrics.Path,
	}, api.Dependencies{
		Engine:    engine,
		Explainer: explainer,
		Archive:   archiver,
		Metrics:   reg,
	}, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	log.Info("starting regime server",
		zap.String("addr", server.Addr()),
		zap.Strings("methods", engine.Methods()),
		zap.Bool("auth", cfg.Server.APIKey != ""),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
