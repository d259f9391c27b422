package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/maker/internal/logging"
	"github.com/fyrsmithlabs/maker/internal/voting"
)

// errUndecided is returned when the values run out before the session ends.
var errUndecided = errors.New("no decision")

// voteOutput is the JSON shape of `maker vote`.
type voteOutput struct {
	Decided  bool                    `json:"decided"`
	Consumed int                     `json:"consumed"`
	Outcome  *voting.Outcome[string] `json:"outcome,omitempty"`
}

func newVoteCmd(a *app) *cobra.Command {
	var (
		k, sampleCap int
		normalize    bool
	)

	cmd := &cobra.Command{
		Use:   "vote [value...]",
		Short: "Apply first-to-ahead-by-k voting to a sequence of values",
		Long: `Feed values in order into a voting session and report the winner, or the
leader if the sample cap is reached first. Values come from the arguments, or
one per line from stdin. Blank lines are skipped.

Examples:
  maker vote --k 2 A B A A
  printf 'C\nc\nC\n' | maker vote --k 3 --normalize`,
		RunE: func(cmd *cobra.Command, args []string) error {
			values := args
			if len(values) == 0 || (len(values) == 1 && values[0] == "-") {
				var err error
				if values, err = readLines(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			if len(values) == 0 {
				return fmt.Errorf("no values to vote on")
			}
			logging.FromContext(cmd.Context()).Trace(cmd.Context(), "vote values read",
				zap.Int("count", len(values)),
				zap.Bool("normalize", normalize),
			)
			if !cmd.Flags().Changed("cap") {
				sampleCap = a.cfg.Executor.SampleCap
			}

			var opts []voting.SessionOption[string]
			if normalize {
				opts = append(opts, voting.WithCanonical(voting.NormalizeText))
			}
			outcome, ok, err := voting.Decide(values, k, sampleCap, opts...)
			if err != nil {
				return err
			}

			out := voteOutput{Decided: ok, Consumed: len(values)}
			if ok {
				out.Consumed = outcome.SamplesUsed
				out.Outcome = &outcome
			}
			logging.FromContext(cmd.Context()).Debug(cmd.Context(), "vote finished",
				zap.Bool("decided", ok),
				zap.Int("consumed", out.Consumed),
				zap.Int("k", k),
			)

			if err := a.emit(cmd, out, func(w io.Writer) { fmt.Fprintln(w, renderVote(out, k)) }); err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w after %d values: no value reached a lead of %d", errUndecided, len(values), k)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&k, "k", 3, "required lead over the runner-up")
	cmd.Flags().IntVar(&sampleCap, "cap", 0, "sample cap (default executor.sample_cap)")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "group values that differ only in case and surrounding space")
	return cmd
}

func renderVote(out voteOutput, k int) string {
	if !out.Decided {
		return renderFields("Vote", []field{
			{label: "result", value: badStyle.Render("undecided")},
			kv("values", "%d", out.Consumed),
			kv("margin k", "%d", k),
		})
	}
	o := out.Outcome
	result := okStyle.Render(string(o.Kind))
	if o.Kind == voting.OutcomeExhausted {
		result = badStyle.Render(string(o.Kind))
	}
	return renderFields("Vote", []field{
		{label: "result", value: result},
		kv("value", "%s", o.Value),
		kv("votes", "%d", o.Votes),
		kv("lead", "%d of %d", o.Lead, k),
		kv("samples used", "%d", o.SamplesUsed),
		kv("distinct values", "%d", o.Distinct),
	})
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxStdin)
	for sc.Scan() {
		if line := strings.TrimRight(sc.Text(), "\r"); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read from stdin: %w", err)
	}
	return lines, nil
}
