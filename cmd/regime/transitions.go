package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ghantakiran/axion-stock-sub001/internal/config"
	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/ghantakiran/axion-stock-sub001/internal/transition"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	transitionsInput   string
	transitionsHorizon int
	transitionsJSON    bool
)

var transitionsCmd = &cobra.Command{
	Use:   "transitions",
	Short: "Analyze a realized regime label sequence",
	Long:  "Estimate the transition matrix, durations and forecast from a file with one regime label per line.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()
		return runTransitions(cfg, log, transitionsInput, transitionsHorizon, transitionsJSON, cmd.OutOrStdout())
	},
}

func init() {
	transitionsCmd.Flags().StringVarP(&transitionsInput, "input", "i", "", "label file, one label per line (required)")
	transitionsCmd.Flags().IntVar(&transitionsHorizon, "horizon", 0, "forecast horizon (default from config)")
	transitionsCmd.Flags().BoolVar(&transitionsJSON, "json", false, "print the report as JSON")

	transitionsCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(transitionsCmd)
}

func runTransitions(cfg *config.Config, log *zap.Logger, input string, horizon int, asJSON bool, out io.Writer) error {
	f, err := os.Open(input)
	if err != nil {
		return core.WrapError(core.ErrInvalidInput, err)
	}
	defer f.Close()

	labels, err := readLabels(f)
	if err != nil {
		return err
	}

	an, err := transition.NewAnalyzer(cfg.ToTransition(), log.Named("transition"))
	if err != nil {
		return err
	}
	rep, err := an.Analyze(labels, nil, horizon)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	printTransitions(out, rep)
	return nil
}

// readLabels reads one label per line. Blank lines and lines starting
// with # are skipped; labels are lower-cased.
func readLabels(r io.Reader) ([]core.Regime, error) {
	var labels []core.Regime
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, core.Regime(strings.ToLower(line)))
	}
	if err := sc.Err(); err != nil {
		return nil, core.WrapError(core.ErrInvalidInput, fmt.Errorf("reading labels: %w", err))
	}
	return labels, nil
}
