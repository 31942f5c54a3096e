// Command report prints analytics reports for persisted workflows.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"threadcraft/internal/analytics"
	"threadcraft/internal/catalog"
	"threadcraft/internal/config"
	"threadcraft/internal/core/postgres/repository"
	"threadcraft/internal/domain"
	"threadcraft/internal/engine"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type options struct {
	configPath   string
	workflowType string
	days         int
	asJSON       bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "report",
		Short:         "Print ThreadCraft workflow analytics",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config.yaml")
	root.PersistentFlags().StringVarP(&opts.workflowType, "type", "t", catalog.OrderLifecycle, "Workflow type to analyze")
	root.PersistentFlags().IntVar(&opts.days, "days", 90, "Only include workflows created in the last N days plus open ones (0 for all)")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "Print the raw report as JSON")

	root.AddCommand(
		reportCmd("performance", "Completion rates, bottlenecks and step performance", opts, func(w io.Writer, a *analytics.Analyzer, states []domain.WorkflowState) error {
			m, err := a.AnalyzeWorkflowPerformance(states, opts.workflowType)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(w, m)
			}
			renderPerformance(w, m)
			return nil
		}),
		reportCmd("patterns", "Transition matrix, loops and backward moves", opts, func(w io.Writer, a *analytics.Analyzer, states []domain.WorkflowState) error {
			p, err := a.AnalyzeTransitionPatterns(states, opts.workflowType)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(w, p)
			}
			renderPatterns(w, p)
			return nil
		}),
		reportCmd("predictive", "Completion estimates and demand forecast", opts, func(w io.Writer, a *analytics.Analyzer, states []domain.WorkflowState) error {
			p, err := a.GeneratePredictiveAnalytics(states, opts.workflowType)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(w, p)
			}
			renderPredictive(w, p)
			return nil
		}),
		reportCmd("recommendations", "Ranked optimization insights", opts, func(w io.Writer, a *analytics.Analyzer, states []domain.WorkflowState) error {
			insights, err := a.GenerateOptimizationRecommendations(states, opts.workflowType)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(w, insights)
			}
			renderInsights(w, insights)
			return nil
		}),
	)
	return root
}

type renderFunc func(w io.Writer, a *analytics.Analyzer, states []domain.WorkflowState) error

func reportCmd(name, short string, opts *options, render renderFunc) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			analyzer, states, err := load(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), analyzer, states)
		},
	}
}

func load(ctx context.Context, opts *options) (*analytics.Analyzer, []domain.WorkflowState, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.DB.Enabled {
		return nil, nil, errors.New("reports read persisted workflows; set db.enabled in the config")
	}

	eng := engine.New()
	if err := catalog.Register(eng); err != nil {
		return nil, nil, err
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	repo := repository.NewWorkflowRepository(db)

	var rng domain.DateRange
	if opts.days > 0 {
		def, ok := eng.Definition(opts.workflowType)
		if !ok {
			return nil, nil, fmt.Errorf("unknown workflow type %q", opts.workflowType)
		}
		rng.From = time.Now().AddDate(0, 0, -opts.days)
		rng.OpenSteps = def.OpenSteps()
	}
	states, err := repo.ListSnapshots(ctx, opts.workflowType, rng)
	if err != nil {
		return nil, nil, err
	}
	return analytics.New(eng, analytics.WithStrict(cfg.Analytics.Strict)), states, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func hours(d time.Duration) string {
	return fmt.Sprintf("%.1f", d.Hours())
}

func renderPerformance(w io.Writer, m analytics.WorkflowMetrics) {
	fmt.Fprintf(w, "Workflow type: %s\n", m.WorkflowType)
	fmt.Fprintf(w, "Total: %d  Completed: %d  Success rate: %.1f%%  Avg completion: %sh\n\n",
		m.TotalWorkflows, m.CompletedWorkflows, m.SuccessRate, hours(m.AverageCompletionTime))

	bt := tablewriter.NewWriter(w)
	bt.SetHeader([]string{"Step", "Avg Dwell (h)", "Visits", "Stuck", "Impact", "Recommendations"})
	for _, b := range m.Bottlenecks {
		bt.Append([]string{
			string(b.Step),
			hours(b.AverageDwell),
			fmt.Sprintf("%d", b.Visits),
			fmt.Sprintf("%d", b.WorkflowsStuck),
			string(b.Impact),
			strings.Join(b.Recommendations, "; "),
		})
	}
	fmt.Fprintln(w, "Bottlenecks:")
	bt.Render()
	fmt.Fprintln(w)

	st := tablewriter.NewWriter(w)
	st.SetHeader([]string{"Step", "Entries", "Avg Time (h)", "Success %", "Common Exits"})
	for _, p := range m.StepPerformance {
		exits := make([]string, 0, len(p.CommonExitPoints))
		for _, e := range p.CommonExitPoints {
			exits = append(exits, fmt.Sprintf("%s (%d)", e.Step, e.Count))
		}
		st.Append([]string{
			string(p.Step),
			fmt.Sprintf("%d", p.TotalTransitions),
			hours(p.AverageTimeSpent),
			fmt.Sprintf("%.1f", p.SuccessRate),
			strings.Join(exits, ", "),
		})
	}
	fmt.Fprintln(w, "Step performance:")
	st.Render()
}

func renderPatterns(w io.Writer, p analytics.TransitionPatterns) {
	fmt.Fprintf(w, "Workflow type: %s  Transitions: %d\n\n", p.WorkflowType, p.TotalTransitions)

	pt := tablewriter.NewWriter(w)
	pt.SetHeader([]string{"From", "To", "Count"})
	for _, path := range p.MostCommonPaths {
		pt.Append([]string{string(path.From), string(path.To), fmt.Sprintf("%d", path.Count)})
	}
	fmt.Fprintln(w, "Most common paths:")
	pt.Render()
	fmt.Fprintln(w)

	ut := tablewriter.NewWriter(w)
	ut.SetHeader([]string{"Step", "Backward", "Total", "Ratio"})
	for _, u := range p.UnusualPatterns {
		ut.Append([]string{
			string(u.Step),
			fmt.Sprintf("%d", u.BackwardTransitions),
			fmt.Sprintf("%d", u.TotalTransitions),
			fmt.Sprintf("%.2f", u.BackwardRatio),
		})
	}
	fmt.Fprintln(w, "Unusual patterns:")
	ut.Render()

	if len(p.LoopDetection) > 0 {
		fmt.Fprintln(w, "\nSelf loops:")
		for step, n := range p.LoopDetection {
			fmt.Fprintf(w, "  %s: %d\n", step, n)
		}
	}
}

func renderPredictive(w io.Writer, p analytics.PredictiveAnalytics) {
	fmt.Fprintf(w, "Workflow type: %s  Expected completion: %sh\n", p.WorkflowType, hours(p.ExpectedCompletion))
	fmt.Fprintf(w, "Demand: %.2f/day, %.1f/week, %.1f/month (last %d days)\n",
		p.DemandForecast.DailyAverage, p.DemandForecast.WeeklyProjection, p.DemandForecast.MonthlyProjection, p.DemandForecast.WindowDays)
	fmt.Fprintf(w, "Trend: %s (%d vs %d, %+.1f%%)\n\n", p.Trend.Direction, p.Trend.RecentCount, p.Trend.PriorCount, p.Trend.ChangePercent)

	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"Workflow", "Step", "Elapsed (h)", "Remaining (h)", "Risk"})
	for _, pr := range p.Predictions {
		t.Append([]string{
			pr.WorkflowID,
			string(pr.CurrentStep),
			hours(pr.Elapsed),
			hours(pr.EstimatedRemaining),
			string(pr.RiskLevel),
		})
	}
	t.Render()
}

func renderInsights(w io.Writer, insights []analytics.BusinessInsight) {
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"Impact", "Category", "Title", "Actions"})
	t.SetRowLine(true)
	for _, in := range insights {
		t.Append([]string{
			string(in.Impact),
			string(in.Category),
			in.Title,
			strings.Join(in.ActionItems, "\n"),
		})
	}
	t.Render()
}
