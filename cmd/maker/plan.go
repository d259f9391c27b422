package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/maker/internal/logging"
	"github.com/fyrsmithlabs/maker/internal/planner"
)

// planOutput is the JSON shape of `maker plan`.
type planOutput struct {
	Plan planner.Plan `json:"plan"`
	Cost float64      `json:"cost,omitempty"`
}

func newPlanCmd(a *app) *cobra.Command {
	var (
		steps                  int
		accuracy, target, cost float64
		strategy               string
		margin                 int
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compute the voting margin k for a task",
		Long: `Compute the smallest margin k for which a task of s steps, each answered
correctly with probability p, succeeds with probability at least t.

Inputs default to the planner section of the config file.

Examples:
  # One million steps at 99% per-step accuracy, 95% target
  maker plan --steps 1000000 --accuracy 0.99 --target 0.95

  # Evaluate a fixed margin instead
  maker plan --steps 100 --accuracy 0.8 --k 7

  # Price the plan at $0.002 per sample
  maker plan --cost-per-sample 0.002 -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pc := a.cfg.Planner
			overrideIf(cmd, "steps", &pc.Steps, steps)
			overrideIf(cmd, "accuracy", &pc.Accuracy, accuracy)
			overrideIf(cmd, "target", &pc.Target, target)
			overrideIf(cmd, "strategy", &pc.Strategy, strategy)
			if cost < 0 {
				return fmt.Errorf("--cost-per-sample must be >= 0")
			}

			pl, err := newPlanner(pc.Strategy)
			if err != nil {
				return err
			}
			var plan planner.Plan
			if margin > 0 {
				plan, err = pl.ForMargin(pc.Steps, pc.Accuracy, margin)
			} else {
				plan, err = pl.Plan(pc.Steps, pc.Accuracy, pc.Target)
			}
			if err != nil {
				return err
			}

			logging.FromContext(cmd.Context()).Debug(cmd.Context(), "plan computed",
				zap.Int("steps", plan.Steps),
				zap.Float64("accuracy", plan.PerStepAccuracy),
				zap.Int("k", plan.K),
				zap.String("strategy", string(plan.Strategy)),
			)

			out := planOutput{Plan: plan}
			if cost > 0 {
				out.Cost = plan.Cost(cost)
			}
			return a.emit(cmd, out, func(w io.Writer) { fmt.Fprintln(w, renderPlan(out)) })
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 0, "number of steps in the task")
	cmd.Flags().Float64Var(&accuracy, "accuracy", 0, "per-step accuracy p, in (0.5, 1)")
	cmd.Flags().Float64Var(&target, "target", 0, "target task success t, in (0, 1)")
	cmd.Flags().StringVar(&strategy, "strategy", "", "margin formula: union_bound or exact")
	cmd.Flags().IntVar(&margin, "k", 0, "evaluate this margin instead of solving for one")
	cmd.Flags().Float64Var(&cost, "cost-per-sample", 0, "price of one oracle sample")
	return cmd
}

func newPlanner(strategy string) (*planner.Planner, error) {
	st, err := planner.ParseStrategy(strategy)
	if err != nil {
		return nil, err
	}
	return planner.New(planner.WithStrategy(st)), nil
}

func renderPlan(out planOutput) string {
	p := out.Plan
	fields := []field{
		kv("steps", "%d", p.Steps),
		kv("per-step accuracy", "%g", p.PerStepAccuracy),
	}
	if p.TargetSuccess > 0 {
		fields = append(fields, kv("target success", "%g", p.TargetSuccess))
	}
	fields = append(fields,
		kv("strategy", "%s", p.Strategy),
		kv("margin k", "%d", p.K),
		kv("samples per step", "%.2f", p.ExpectedSamplesPerStep),
		kv("total samples", "%.4g", p.ExpectedTotalCost),
		kv("per-step win bound", "%s", percent(p.PerStepWinBound)),
		kv("task success bound", "%s", percent(p.TaskSuccessBound)),
	)
	if out.Cost > 0 {
		fields = append(fields, kv("expected cost", "%.4f", out.Cost))
	}
	return renderFields("Reliability plan", fields)
}

// tableOutput is the JSON shape of `maker table`.
type tableOutput struct {
	Accuracy float64            `json:"accuracy"`
	Target   float64            `json:"target"`
	Rows     []planner.TableRow `json:"rows"`
}

func newTableCmd(a *app) *cobra.Command {
	var (
		steps            []int
		accuracy, target float64
		strategy         string
	)

	cmd := &cobra.Command{
		Use:   "table",
		Short: "Show how k and cost grow with task length",
		Long: `Plan several task lengths with the same accuracy and target. The margin
grows with the logarithm of the step count.

Examples:
  maker table --accuracy 0.99 --target 0.95
  maker table --steps 10,100,1000 --accuracy 0.9`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pc := a.cfg.Planner
			overrideIf(cmd, "accuracy", &pc.Accuracy, accuracy)
			overrideIf(cmd, "target", &pc.Target, target)
			overrideIf(cmd, "strategy", &pc.Strategy, strategy)

			pl, err := newPlanner(pc.Strategy)
			if err != nil {
				return err
			}
			rows, err := pl.Table(steps, pc.Accuracy, pc.Target)
			if err != nil {
				return err
			}
			out := tableOutput{Accuracy: pc.Accuracy, Target: pc.Target, Rows: rows}
			return a.emit(cmd, out, func(w io.Writer) { renderTable(w, out) })
		},
	}

	cmd.Flags().IntSliceVar(&steps, "steps", []int{1_000, 10_000, 100_000, 1_000_000}, "task lengths to plan")
	cmd.Flags().Float64Var(&accuracy, "accuracy", 0, "per-step accuracy p, in (0.5, 1)")
	cmd.Flags().Float64Var(&target, "target", 0, "target task success t, in (0, 1)")
	cmd.Flags().StringVar(&strategy, "strategy", "", "margin formula: union_bound or exact")
	return cmd
}

func renderTable(w io.Writer, out tableOutput) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("p=%g  t=%g", out.Accuracy, out.Target)))

	header := []string{"STEPS", "K", "SAMPLES/STEP", "TOTAL SAMPLES", "TASK BOUND"}
	cells := [][]string{header}
	for _, r := range out.Rows {
		cells = append(cells, []string{
			strconv.Itoa(r.Steps),
			strconv.Itoa(r.Plan.K),
			fmt.Sprintf("%.2f", r.Plan.ExpectedSamplesPerStep),
			fmt.Sprintf("%.4g", r.Plan.ExpectedTotalCost),
			percent(r.Plan.TaskSuccessBound),
		})
	}

	widths := make([]int, len(header))
	for _, row := range cells {
		for i, c := range row {
			widths[i] = max(widths[i], len(c))
		}
	}
	for i, row := range cells {
		parts := make([]string, len(row))
		for j, c := range row {
			parts[j] = c + strings.Repeat(" ", widths[j]-len(c))
		}
		line := strings.TrimRight(strings.Join(parts, "  "), " ")
		if i == 0 {
			line = labelStyle.Render(line)
		}
		fmt.Fprintln(w, line)
	}
}
