package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildcare/internal/config"
	"github.com/guildcare/internal/escalation"
	"github.com/guildcare/internal/ledger"
	"github.com/guildcare/internal/llm"
	"github.com/guildcare/internal/triage"
)

type stubAnalyzer struct {
	review bool
	err    error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, message string, player triage.PlayerContext) (*triage.Analysis, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &triage.Analysis{
		IssueDetected: true,
		Issue: &triage.IssueDetectionResult{
			Detected:     true,
			IssueType:    triage.IssueTechnical,
			PlayerImpact: triage.ImpactModerate,
		},
		Sentiment: &triage.SentimentResult{Tone: triage.ToneNeutral, Urgency: triage.UrgencyMedium},
		Recommendation: &triage.CompensationRecommendation{
			Tier:                  triage.TierP3,
			Reasoning:             "Sorry about the crash, here is something for your trouble.",
			SuggestedCompensation: triage.NewBundle(triage.Gold{Amount: 250}, triage.Gems{Amount: 20}),
			RequiresHumanReview:   s.review,
		},
	}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

type caseBody struct {
	ID                  string `json:"id"`
	State               string `json:"state"`
	RequestID           string `json:"request_id"`
	ReleasedText        string `json:"released_text"`
	PendingResponseText string `json:"pending_response_text"`
	AwaitingApproval    bool   `json:"awaiting_approval"`
}

type requestBody struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Resolved bool   `json:"resolved"`
}

func newTestServer(t *testing.T, analyzer escalation.Analyzer) http.Handler {
	t.Helper()
	cfg := config.Default()
	l := ledger.New(ledger.NewMemoryStore(), nil, nil)
	manager := escalation.NewManager(cfg.Escalation, escalation.NewMemoryStore(), analyzer, l, nil, nil, nil)
	return NewGateway(cfg.API, cfg.Metrics, manager, l, nil, nil).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, reader))

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func decodeData(t *testing.T, env envelope, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func newCase(id string) map[string]any {
	return map[string]any{
		"case_id": id,
		"message": "the game crashed in the middle of a raid",
		"player":  map[string]any{"player_id": "p-1", "vip_level": 2},
	}
}

func TestAutoResolvedCaseThroughDistribution(t *testing.T) {
	h := newTestServer(t, &stubAnalyzer{})

	code, env := do(t, h, http.MethodPost, "/api/v1/cases", newCase("case-1"))
	require.Equal(t, http.StatusCreated, code)
	var c caseBody
	decodeData(t, env, &c)
	assert.Equal(t, "auto_resolved", c.State)
	assert.Contains(t, c.ReleasedText, "Sorry about the crash")
	require.NotEmpty(t, c.RequestID)

	code, env = do(t, h, http.MethodGet, "/api/v1/requests/"+c.RequestID, nil)
	require.Equal(t, http.StatusOK, code)
	var req requestBody
	decodeData(t, env, &req)
	assert.Equal(t, "approved", req.Status)
	assert.True(t, req.Resolved)

	code, _ = do(t, h, http.MethodPost, "/api/v1/requests/"+c.RequestID+"/distribute", DistributeRequest{Actor: "inventory"})
	assert.Equal(t, http.StatusOK, code)

	code, env = do(t, h, http.MethodGet, "/api/v1/players/p-1/requests", nil)
	require.Equal(t, http.StatusOK, code)
	var reqs []requestBody
	decodeData(t, env, &reqs)
	require.Len(t, reqs, 1)
	assert.Equal(t, "distributed", reqs[0].Status)
	assert.Equal(t, 1, env.Meta.Total)
}

func TestHeldCaseApproval(t *testing.T) {
	h := newTestServer(t, &stubAnalyzer{review: true})

	code, env := do(t, h, http.MethodPost, "/api/v1/cases", newCase("case-2"))
	require.Equal(t, http.StatusCreated, code)
	var c caseBody
	decodeData(t, env, &c)
	assert.Equal(t, "awaiting_approval", c.State)
	assert.True(t, c.AwaitingApproval)
	assert.Empty(t, c.ReleasedText)

	code, env = do(t, h, http.MethodGet, "/api/v1/cases?state=awaiting_approval&older_than=0s", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, env.Meta.Total)

	code, _ = do(t, h, http.MethodPost, "/api/v1/cases/case-2/approve", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = do(t, h, http.MethodPost, "/api/v1/cases/case-2/approve", ApproveCaseRequest{Agent: "agent-7"})
	require.Equal(t, http.StatusOK, code)
	decodeData(t, env, &c)
	assert.Equal(t, "approved", c.State)
	assert.Contains(t, c.ReleasedText, "Sorry about the crash")

	code, env = do(t, h, http.MethodPost, "/api/v1/cases/case-2/reject", RejectCaseRequest{Agent: "agent-8"})
	require.Equal(t, http.StatusOK, code)
	decodeData(t, env, &c)
	assert.Equal(t, "approved", c.State)
}

func TestDecidingUnheldCaseConflicts(t *testing.T) {
	h := newTestServer(t, &stubAnalyzer{})

	code, _ := do(t, h, http.MethodPost, "/api/v1/cases", newCase("case-3"))
	require.Equal(t, http.StatusCreated, code)

	code, env := do(t, h, http.MethodPost, "/api/v1/cases/case-3/reject", RejectCaseRequest{Agent: "agent-1"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CONFLICT", env.Error.Code)
}

func TestDeferredCaseSubmit(t *testing.T) {
	h := newTestServer(t, &stubAnalyzer{})

	code, env := do(t, h, http.MethodPost, "/api/v1/cases?defer=true", newCase("case-4"))
	require.Equal(t, http.StatusCreated, code)
	var c caseBody
	decodeData(t, env, &c)
	assert.Equal(t, "intake", c.State)

	code, env = do(t, h, http.MethodPost, "/api/v1/cases/case-4/submit", nil)
	require.Equal(t, http.StatusOK, code)
	decodeData(t, env, &c)
	assert.Equal(t, "auto_resolved", c.State)
}

func TestServiceUnavailableMapsTo503(t *testing.T) {
	h := newTestServer(t, &stubAnalyzer{err: fmt.Errorf("%w: timeout", llm.ErrServiceUnavailable)})

	code, env := do(t, h, http.MethodPost, "/api/v1/cases", newCase("case-5"))
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", env.Error.Code)

	code, env = do(t, h, http.MethodGet, "/api/v1/cases/case-5", nil)
	require.Equal(t, http.StatusOK, code)
	var c caseBody
	decodeData(t, env, &c)
	assert.Equal(t, "intake", c.State)
}

func TestRequestValidationErrors(t *testing.T) {
	h := newTestServer(t, &stubAnalyzer{})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"empty message", http.MethodPost, "/api/v1/cases", map[string]any{"message": " ", "player": map[string]any{"player_id": "p"}}, http.StatusBadRequest},
		{"vip out of range", http.MethodPost, "/api/v1/cases", map[string]any{"message": "hi", "player": map[string]any{"player_id": "p", "vip_level": 20}}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/v1/cases", map[string]any{"msg": "hi"}, http.StatusBadRequest},
		{"unknown case", http.MethodGet, "/api/v1/cases/missing", nil, http.StatusNotFound},
		{"unknown request", http.MethodGet, "/api/v1/requests/missing", nil, http.StatusNotFound},
		{"bad state filter", http.MethodGet, "/api/v1/cases?state=closed", nil, http.StatusBadRequest},
		{"bad age filter", http.MethodGet, "/api/v1/cases?older_than=soon", nil, http.StatusBadRequest},
		{"distribute unknown", http.MethodPost, "/api/v1/requests/missing/distribute", DistributeRequest{Actor: "x"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, code)
			assert.False(t, env.Success)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, &stubAnalyzer{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
