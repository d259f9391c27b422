package http

import (
	"github.com/fyrsmithlabs/maker/internal/planner"
	"github.com/fyrsmithlabs/maker/internal/redflag"
	"github.com/fyrsmithlabs/maker/internal/voting"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version,omitempty"`
	Telemetry string `json:"telemetry,omitempty"`
}

// PlanRequest is the request body for POST /api/v1/plan. When K is set the
// plan is evaluated for that margin and Target is ignored.
type PlanRequest struct {
	Steps         int     `json:"steps"`
	Accuracy      float64 `json:"accuracy"`
	Target        float64 `json:"target"`
	Strategy      string  `json:"strategy,omitempty"`
	K             int     `json:"k,omitempty"`
	CostPerSample float64 `json:"cost_per_sample,omitempty"`
}

// PlanResponse is the response body for POST /api/v1/plan.
type PlanResponse struct {
	Plan planner.Plan `json:"plan"`
	Cost float64      `json:"cost,omitempty"`
}

// TableRequest is the request body for POST /api/v1/plan/table.
type TableRequest struct {
	Steps    []int   `json:"steps"`
	Accuracy float64 `json:"accuracy"`
	Target   float64 `json:"target"`
	Strategy string  `json:"strategy,omitempty"`
}

// TableResponse is the response body for POST /api/v1/plan/table.
type TableResponse struct {
	Rows []planner.TableRow `json:"rows"`
}

// ClassifyRequest is the request body for POST /api/v1/classify.
type ClassifyRequest struct {
	Text    string `json:"text"`
	Profile string `json:"profile,omitempty"`
	// ExpectedLength overrides the profile's expected length when set.
	ExpectedLength *int `json:"expected_length,omitempty"`
}

// ClassifyResponse is the response body for POST /api/v1/classify.
type ClassifyResponse struct {
	Profile string          `json:"profile"`
	Length  int             `json:"length"`
	Verdict redflag.Verdict `json:"verdict"`
}

// VoteRequest is the request body for POST /api/v1/vote. Values are fed in
// order until the session is terminal.
type VoteRequest struct {
	Values    []string `json:"values"`
	K         int      `json:"k"`
	SampleCap int      `json:"sample_cap,omitempty"`
	// Normalize groups values that differ only in case and surrounding space.
	Normalize bool `json:"normalize,omitempty"`
}

// VoteResponse is the response body for POST /api/v1/vote. Outcome is nil
// when the values ran out before a decision.
type VoteResponse struct {
	Decided  bool                    `json:"decided"`
	Consumed int                     `json:"consumed"`
	Outcome  *voting.Outcome[string] `json:"outcome,omitempty"`
}

// ProfilesResponse is the response body for GET /api/v1/profiles.
type ProfilesResponse struct {
	Profiles []string `json:"profiles"`
}
