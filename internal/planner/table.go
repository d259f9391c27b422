package planner

// TableRow is one line of a margin table.
type TableRow struct {
	Steps int  `json:"steps"`
	Plan  Plan `json:"plan"`
}

// Table plans each step count with the same p and t. Rows keep the order of steps.
func (pl *Planner) Table(steps []int, p, t float64) ([]TableRow, error) {
	rows := make([]TableRow, 0, len(steps))
	for _, s := range steps {
		plan, err := pl.Plan(s, p, t)
		if err != nil {
			return nil, err
		}
		rows = append(rows, TableRow{Steps: s, Plan: plan})
	}
	return rows, nil
}

// DefaultTableSteps are the step counts shown by the CLI table command.
var DefaultTableSteps = []int{10, 100, 1_000, 10_000, 100_000, 1_000_000}
