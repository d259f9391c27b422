package executor

import (
	"context"

	"github.com/fyrsmithlabs/maker/internal/candidate"
)

// Oracle produces candidate answers for one step. Sample may block and may fail.
type Oracle[V comparable] interface {
	Sample(ctx context.Context) (candidate.Candidate[V], error)
}

// OracleFunc adapts a function to Oracle.
type OracleFunc[V comparable] func(ctx context.Context) (candidate.Candidate[V], error)

// Sample calls f.
func (f OracleFunc[V]) Sample(ctx context.Context) (candidate.Candidate[V], error) {
	return f(ctx)
}
