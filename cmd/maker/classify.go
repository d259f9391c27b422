package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/maker/internal/candidate"
	"github.com/fyrsmithlabs/maker/internal/logging"
	"github.com/fyrsmithlabs/maker/internal/redflag"
)

// errRejected is returned by `classify --strict` for a red-flagged candidate.
var errRejected = errors.New("candidate rejected")

// classifyOutput is the JSON shape of `maker classify`.
type classifyOutput struct {
	Profile string          `json:"profile"`
	Length  int             `json:"length"`
	Verdict redflag.Verdict `json:"verdict"`
}

func newClassifyCmd(a *app) *cobra.Command {
	var (
		profile        string
		expectedLength int
		strict         bool
	)

	cmd := &cobra.Command{
		Use:   "classify [text]",
		Short: "Run the red-flag filter on one candidate",
		Long: `Classify a candidate answer as accepted or red-flagged. The text comes from
the arguments, or from stdin when there are none or the only argument is "-".

Examples:
  maker classify "move disk 1 to peg C"
  echo '{"move": 1}' | maker classify --profile json
  maker classify --expected-length 20 --strict "$(cat answer.txt)"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd, args)
			if err != nil {
				return err
			}

			cfg, err := a.cfg.Profile(profile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("expected-length") {
				if expectedLength < 0 {
					return fmt.Errorf("--expected-length must be >= 0")
				}
				cfg.ExpectedLength = expectedLength
			}

			filter, err := a.redFlagFilter()
			if err != nil {
				return err
			}
			c := candidate.FromText(text, nil)
			verdict := redflag.Classify(filter, c, cfg)

			logging.FromContext(cmd.Context()).Debug(cmd.Context(), "candidate classified",
				zap.Bool("accepted", verdict.Accepted),
				zap.String("reason", string(verdict.Reason)),
				logging.Excerpt("text", text, 80),
			)

			name := profile
			if name == "" {
				name = "default"
			}
			out := classifyOutput{Profile: name, Length: c.Length, Verdict: verdict}
			if err := a.emit(cmd, out, func(w io.Writer) { fmt.Fprintln(w, renderVerdict(out)) }); err != nil {
				return err
			}
			if strict && verdict.Rejected() {
				return fmt.Errorf("%w: %s", errRejected, verdict.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "", "red-flag profile from the config (default \"default\")")
	cmd.Flags().IntVar(&expectedLength, "expected-length", 0, "override the profile's expected length")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when the candidate is rejected")
	return cmd
}

func renderVerdict(out classifyOutput) string {
	status := okStyle.Render("accepted")
	if out.Verdict.Rejected() {
		status = badStyle.Render("rejected")
	}
	fields := []field{
		{label: "verdict", value: status},
		kv("profile", "%s", out.Profile),
		kv("length", "%d", out.Length),
	}
	if out.Verdict.Rejected() {
		fields = append(fields,
			kv("reason", "%s", out.Verdict.Reason),
			kv("rule", "%s", out.Verdict.Rule),
		)
		if out.Verdict.Detail != "" {
			fields = append(fields, kv("detail", "%s", out.Verdict.Detail))
		}
	}
	return renderFields("Red-flag check", fields)
}

// readText joins args, or reads all of stdin when args is empty or "-".
func readText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxStdin+1))
	if err != nil {
		return "", fmt.Errorf("failed to read from stdin: %w", err)
	}
	if len(b) > maxStdin {
		return "", fmt.Errorf("stdin exceeds %d bytes", maxStdin)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

const maxStdin = 1 << 20
