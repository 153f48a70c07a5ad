package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/ghantakiran/axion-stock-sub001/internal/transition"
)

func printReport(w io.Writer, out analyzeOutput) {
	r := out.Report
	fmt.Fprintf(w, "=== Regime: %s ===\n", r.Symbol)
	fmt.Fprintf(w, "Observations: %d\n", r.Observations)
	if r.Result.IsUnknown() {
		fmt.Fprintln(w, "Consensus:    unknown (insufficient data)")
	} else {
		fmt.Fprintf(w, "Consensus:    %s (confidence %.2f, %d observations)\n",
			r.Result.Regime, r.Result.Confidence, r.Result.Duration)
	}
	if r.Consensus != nil {
		fmt.Fprintf(w, "Agreement:    %.0f%%\n", r.Consensus.AgreementRatio*100)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tREGIME\tCONFIDENCE\tDURATION")
	names := make([]string, 0, len(r.Methods))
	for n := range r.Methods {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		res := r.Methods[n].Result
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%d\n", n, res.Regime, res.Confidence, res.Duration)
	}
	skipped := make([]string, 0, len(r.Skipped))
	for n := range r.Skipped {
		skipped = append(skipped, n)
	}
	sort.Strings(skipped)
	for _, n := range skipped {
		fmt.Fprintf(tw, "%s\tskipped\t-\t%s\n", n, r.Skipped[n])
	}
	tw.Flush()

	if r.Transitions != nil {
		fmt.Fprintln(w)
		printTransitions(w, r.Transitions)
	}

	if c := out.Commentary; c != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Commentary (%s):\n  %s\n", c.Provider, c.Summary)
		if c.Outlook != "" {
			fmt.Fprintf(w, "Outlook:\n  %s\n", c.Outlook)
		}
		for _, risk := range c.Risks {
			fmt.Fprintf(w, "  - %s\n", risk)
		}
	}
	if e := out.Change; e != nil {
		fmt.Fprintf(w, "\nRegime change: %s -> %s\n", e.Previous, e.Current)
	}
	if out.Archived != "" {
		fmt.Fprintf(w, "\nArchived: %s\n", out.Archived)
	}
}

func printTransitions(w io.Writer, rep *transition.Report) {
	m := rep.Matrix
	fmt.Fprintln(w, "Transition matrix:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := make([]string, 0, len(m.States)+1)
	header = append(header, "from\\to")
	for _, s := range m.States {
		header = append(header, string(s))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\tduration\t")
	for i, from := range m.States {
		row := []string{string(from)}
		for _, p := range m.Probabilities[i] {
			row = append(row, fmt.Sprintf("%.3f", p))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t")+fmt.Sprintf("\t%.1f\t", m.ExpectedDurations[from]))
	}
	tw.Flush()

	fmt.Fprintf(w, "Current: %s", rep.Current)
	if rep.Next != "" {
		fmt.Fprintf(w, "  next: %s", rep.Next)
	}
	fmt.Fprintln(w)
	for i, d := range rep.Forecast {
		best, p := d.Argmax(m.States)
		fmt.Fprintf(w, "  t+%d: %s (%.2f)\n", i+1, best, p)
	}
	fmt.Fprintf(w, "Steady state: %s\n", formatDistribution(rep.Steady))
}

func formatDistribution(d core.Distribution) string {
	parts := make([]string, 0, len(d))
	for _, l := range d.Labels() {
		parts = append(parts, fmt.Sprintf("%s=%.2f", l, d[l]))
	}
	return strings.Join(parts, " ")
}
