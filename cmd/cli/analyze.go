package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"sensetrack/app"
	"sensetrack/internal/analysis/contexts"
	"sensetrack/internal/analysis/risk"
	"sensetrack/internal/analysis/transitions"
)

type analyzeOptions struct {
	now    string
	asJSON bool
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run an analysis over the stored records",
		Long: `Run one of the analyses over the stored records.

Example: sensetrack analyze risk --now 2024-05-14T14:30:00Z`,
	}
	cmd.PersistentFlags().StringVar(&opts.now, "now", "", "Reference time (RFC3339), defaults to the current time")
	cmd.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "Print the raw analysis as JSON")

	cmd.AddCommand(
		analyzeSubcommand(opts, "transitions", "Transition difficulty per activity", runTransitions),
		analyzeSubcommand(opts, "contexts", "Compare home and school", runContexts),
		analyzeSubcommand(opts, "risk", "Forecast high-arousal risk for the rest of today", runRisk),
		analyzeSubcommand(opts, "goals", "Goal progress and status", runGoals),
	)
	return cmd
}

type analyzeFunc func(cmd *cobra.Command, insights *app.InsightsService, opts *analyzeOptions) error

func analyzeSubcommand(opts *analyzeOptions, use, short string, run analyzeFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openContainer(cmd)
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())
			return run(cmd, c.Insights, opts)
		},
	}
}

func runTransitions(cmd *cobra.Command, insights *app.InsightsService, opts *analyzeOptions) error {
	stats := insights.Transitions()
	if opts.asJSON {
		return printJSON(cmd, stats)
	}
	printTransitions(cmd.OutOrStdout(), stats)
	return nil
}

func printTransitions(w io.Writer, stats transitions.Stats) {
	fmt.Fprintf(w, "Transitions: %d rated, average difficulty %.1f\n", stats.TotalTransitions, stats.AverageDifficulty)
	if stats.ConfidenceWarning != "" {
		fmt.Fprintf(w, "Note: %s\n", stats.ConfidenceWarning)
	}
	if len(stats.HardestTransitions) > 0 {
		fmt.Fprintln(w, "\nHardest:")
		for i, a := range stats.HardestTransitions {
			fmt.Fprintf(w, "%d. %s  avg %.1f over %d  trend %s (p=%.3f, %s confidence)\n",
				i+1, a.Activity, a.AverageDifficulty, a.Count, a.Trend, a.TrendPValue, a.Confidence)
		}
	}
	if len(stats.EffectiveSupports) > 0 {
		fmt.Fprintln(w, "\nSupports (lower is better):")
		for _, s := range stats.EffectiveSupports {
			fmt.Fprintf(w, "- %s  avg %.1f over %d uses\n", s.Strategy, s.AverageDifficulty, s.UsageCount)
		}
	}
}

func runContexts(cmd *cobra.Command, insights *app.InsightsService, opts *analyzeOptions) error {
	comparison := insights.Contexts()
	if opts.asJSON {
		return printJSON(cmd, comparison)
	}
	printContexts(cmd.OutOrStdout(), comparison)
	return nil
}

func printContexts(w io.Writer, comparison *contexts.Comparison) {
	if comparison == nil {
		fmt.Fprintln(w, "Not enough logs in both home and school to compare yet.")
		return
	}
	for _, m := range []contexts.Metrics{comparison.Home, comparison.School} {
		fmt.Fprintf(w, "%-7s %3d logs  arousal %.1f  energy %.1f  valence %.1f  crises %d\n",
			m.Context, m.LogCount, m.AverageArousal, m.AverageEnergy, m.AverageValence, m.CrisisCount)
	}
	if len(comparison.Differences) == 0 {
		fmt.Fprintln(w, "\nNo notable differences.")
		return
	}
	fmt.Fprintln(w, "\nDifferences:")
	for _, d := range comparison.Differences {
		fmt.Fprintf(w, "- [%s] %s\n", d.Significance, d.Description)
	}
}

func runRisk(cmd *cobra.Command, insights *app.InsightsService, opts *analyzeOptions) error {
	now, err := parseNow(opts.now, insights.Now())
	if err != nil {
		return err
	}
	result := insights.Risk(now)
	if opts.asJSON {
		return printJSON(cmd, result)
	}
	printRisk(cmd.OutOrStdout(), result)
	return nil
}

func printRisk(w io.Writer, result risk.Result) {
	fmt.Fprintf(w, "Risk: %s (score %d/100) from %d same-weekday logs\n",
		strings.ToUpper(string(result.Level)), result.Score, result.SameWeekdayLogs)
	if result.PredictedHighArousalWindow != "" {
		fmt.Fprintf(w, "Watch: %s\n", result.PredictedHighArousalWindow)
	}
	for _, f := range result.ContributingFactors {
		fmt.Fprintf(w, "- %s\n", f)
	}
}

func runGoals(cmd *cobra.Command, insights *app.InsightsService, opts *analyzeOptions) error {
	now, err := parseNow(opts.now, insights.Now())
	if err != nil {
		return err
	}
	summaries := insights.Goals(now)
	if opts.asJSON {
		return printJSON(cmd, summaries)
	}
	printGoals(cmd.OutOrStdout(), summaries)
	return nil
}

func printGoals(w io.Writer, summaries []app.GoalSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No goals yet.")
		return
	}
	for _, g := range summaries {
		fmt.Fprintf(w, "- %s [%s] %.0f%% (%g of %g %s), %d days left\n",
			g.Title, g.Status, g.Percent, g.CurrentValue, g.TargetValue, g.TargetUnit, g.DaysRemaining)
	}
}
