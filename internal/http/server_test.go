package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fyrsmithlabs/maker/internal/planner"
	"github.com/fyrsmithlabs/maker/internal/redflag"
	"github.com/fyrsmithlabs/maker/internal/voting"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testProfiles() map[string]redflag.Config {
	jsonProfile := redflag.DefaultConfig(0)
	jsonProfile.RequiredFormat = redflag.FormatJSON
	return map[string]redflag.Config{
		"default": redflag.DefaultConfig(0),
		"json":    jsonProfile,
	}
}

func setupTestServer(t *testing.T) *Server {
	t.Helper()
	server, err := NewServer(Deps{
		Planner:  planner.New(),
		Profiles: testProfiles(),
	}, zap.NewNop(), &Config{Host: "localhost", Port: 9090, Version: "test"})
	require.NoError(t, err)
	return server
}

func post(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestNewServer(t *testing.T) {
	t.Run("uses defaults when config is nil", func(t *testing.T) {
		server, err := NewServer(Deps{Planner: planner.New(), Profiles: testProfiles()}, zap.NewNop(), nil)
		require.NoError(t, err)
		assert.Equal(t, "localhost", server.config.Host)
		assert.Equal(t, 9090, server.config.Port)
		assert.NotNil(t, server.filter)
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(Deps{Planner: planner.New(), Profiles: testProfiles()}, nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("returns error when planner is nil", func(t *testing.T) {
		_, err := NewServer(Deps{Profiles: testProfiles()}, zap.NewNop(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "planner cannot be nil")
	})

	t.Run("returns error without profiles", func(t *testing.T) {
		_, err := NewServer(Deps{Planner: planner.New()}, zap.NewNop(), nil)
		assert.Error(t, err)
	})
}

func TestHandleHealth(t *testing.T) {
	server := setupTestServer(t)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.Empty(t, resp.Telemetry)
}

func TestHandlePlan(t *testing.T) {
	t.Run("computes a plan", func(t *testing.T) {
		server := setupTestServer(t)
		rec := post(t, server, "/api/v1/plan", PlanRequest{
			Steps: 1_000_000, Accuracy: 0.99, Target: 0.95, CostPerSample: 0.001,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[PlanResponse](t, rec)
		want, err := planner.Compute(1_000_000, 0.99, 0.95)
		require.NoError(t, err)
		assert.Equal(t, want.K, resp.Plan.K)
		assert.InDelta(t, want.ExpectedTotalCost*0.001, resp.Cost, 1e-6)
	})

	t.Run("explicit strategy", func(t *testing.T) {
		server := setupTestServer(t)
		rec := post(t, server, "/api/v1/plan", PlanRequest{
			Steps: 1000, Accuracy: 0.9, Target: 0.9, Strategy: "exact",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[PlanResponse](t, rec)
		assert.Equal(t, planner.StrategyExact, resp.Plan.Strategy)
		assert.Equal(t, planner.ExactMinMargin(1000, 0.9, 0.9), resp.Plan.K)
	})

	t.Run("fixed margin", func(t *testing.T) {
		server := setupTestServer(t)
		rec := post(t, server, "/api/v1/plan", PlanRequest{Steps: 100, Accuracy: 0.8, K: 7})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 7, decode[PlanResponse](t, rec).Plan.K)
	})

	t.Run("rejects accuracy at one half", func(t *testing.T) {
		server := setupTestServer(t)
		rec := post(t, server, "/api/v1/plan", PlanRequest{Steps: 10, Accuracy: 0.5, Target: 0.9})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "per_step_accuracy")
	})

	t.Run("rejects unknown strategy", func(t *testing.T) {
		server := setupTestServer(t)
		rec := post(t, server, "/api/v1/plan", PlanRequest{Steps: 10, Accuracy: 0.9, Target: 0.9, Strategy: "magic"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects invalid json", func(t *testing.T) {
		server := setupTestServer(t)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/plan", strings.NewReader("{not json"))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleTable(t *testing.T) {
	server := setupTestServer(t)
	rec := post(t, server, "/api/v1/plan/table", TableRequest{
		Steps: []int{10, 1000, 100000}, Accuracy: 0.99, Target: 0.95,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[TableResponse](t, rec)
	require.Len(t, resp.Rows, 3)
	assert.Equal(t, 10, resp.Rows[0].Steps)
	assert.LessOrEqual(t, resp.Rows[0].Plan.K, resp.Rows[2].Plan.K)

	rec = post(t, server, "/api/v1/plan/table", TableRequest{Accuracy: 0.99, Target: 0.95})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(t, server, "/api/v1/plan/table", TableRequest{Steps: make([]int, maxTableRows+1), Accuracy: 0.99, Target: 0.95})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleProfiles(t *testing.T) {
	server := setupTestServer(t)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/profiles", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"default", "json"}, decode[ProfilesResponse](t, rec).Profiles)
}

func TestHandleClassify(t *testing.T) {
	tests := []struct {
		name       string
		req        ClassifyRequest
		wantStatus int
		accepted   bool
		reason     redflag.Reason
	}{
		{"plain answer", ClassifyRequest{Text: "move disk 1 to peg C"}, http.StatusOK, true, ""},
		{"hedged answer", ClassifyRequest{Text: "I'm not sure, maybe peg C"}, http.StatusOK, false, redflag.ReasonHedging},
		{"too long for expected length", ClassifyRequest{Text: strings.Repeat("x", 50), ExpectedLength: intPtr(10)}, http.StatusOK, false, redflag.ReasonTooLong},
		{"json profile rejects prose", ClassifyRequest{Text: "not json", Profile: "json"}, http.StatusOK, false, redflag.ReasonMalformedFormat},
		{"json profile accepts object", ClassifyRequest{Text: `{"move": 1}`, Profile: "json"}, http.StatusOK, true, ""},
		{"unknown profile", ClassifyRequest{Text: "x", Profile: "nope"}, http.StatusNotFound, false, ""},
		{"negative expected length", ClassifyRequest{Text: "x", ExpectedLength: intPtr(-1)}, http.StatusBadRequest, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := setupTestServer(t)
			rec := post(t, server, "/api/v1/classify", tt.req)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}
			resp := decode[ClassifyResponse](t, rec)
			assert.Equal(t, tt.accepted, resp.Verdict.Accepted)
			assert.Equal(t, tt.reason, resp.Verdict.Reason)
		})
	}
}

func intPtr(v int) *int { return &v }

func TestHandleVote(t *testing.T) {
	t.Run("decides a winner", func(t *testing.T) {
		server := setupTestServer(t)
		rec := post(t, server, "/api/v1/vote", VoteRequest{
			Values: []string{"A", "B", "A", "A", "C", "B"}, K: 2,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[VoteResponse](t, rec)
		require.True(t, resp.Decided)
		assert.Equal(t, voting.OutcomeWinner, resp.Outcome.Kind)
		assert.Equal(t, "A", resp.Outcome.Value)
		assert.Equal(t, 4, resp.Consumed)
	})

	t.Run("sample cap exhausts", func(t *testing.T) {
		server := setupTestServer(t)
		rec := post(t, server, "/api/v1/vote", VoteRequest{
			Values: []string{"A", "B", "B", "A"}, K: 3, SampleCap: 4,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[VoteResponse](t, rec)
		require.True(t, resp.Decided)
		assert.Equal(t, voting.OutcomeExhausted, resp.Outcome.Kind)
		assert.Equal(t, "A", resp.Outcome.Value, "tie goes to the earliest observed value")
	})

	t.Run("undecided when values run out", func(t *testing.T) {
		server := setupTestServer(t)
		rec := post(t, server, "/api/v1/vote", VoteRequest{Values: []string{"A", "B"}, K: 2, SampleCap: 10})
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[VoteResponse](t, rec)
		assert.False(t, resp.Decided)
		assert.Nil(t, resp.Outcome)
		assert.Equal(t, 2, resp.Consumed)
	})

	t.Run("normalize groups case variants", func(t *testing.T) {
		server := setupTestServer(t)
		rec := post(t, server, "/api/v1/vote", VoteRequest{
			Values: []string{"Peg C", " peg c", "PEG C"}, K: 3, Normalize: true,
		})
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[VoteResponse](t, rec)
		require.True(t, resp.Decided)
		assert.Equal(t, "Peg C", resp.Outcome.Value)
	})

	t.Run("rejects zero margin", func(t *testing.T) {
		server := setupTestServer(t)
		rec := post(t, server, "/api/v1/vote", VoteRequest{Values: []string{"A"}, K: 0})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects empty values", func(t *testing.T) {
		server := setupTestServer(t)
		rec := post(t, server, "/api/v1/vote", VoteRequest{K: 1})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "maker_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	server, err := NewServer(Deps{
		Planner:  planner.New(),
		Profiles: testProfiles(),
		Gatherer: reg,
	}, zap.NewNop(), nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "maker_test_total 1")
}

func TestMetricsEndpoint_AbsentWithoutGatherer(t *testing.T) {
	server := setupTestServer(t)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
