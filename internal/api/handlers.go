package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/guildcare/internal/escalation"
	"github.com/guildcare/internal/ledger"
	"github.com/guildcare/internal/llm"
	"github.com/guildcare/internal/triage"
)

// Request/Response types

type CreateCaseRequest struct {
	CaseID  string               `json:"case_id,omitempty"`
	Message string               `json:"message"`
	Player  triage.PlayerContext `json:"player"`
}

type ApproveCaseRequest struct {
	Agent string `json:"agent"`
}

type RejectCaseRequest struct {
	Agent  string `json:"agent"`
	Reason string `json:"reason,omitempty"`
}

type DistributeRequest struct {
	Actor string `json:"actor"`
}

// CaseView is a case with its age at response time
type CaseView struct {
	*escalation.Case
	AgeSeconds       float64 `json:"age_seconds"`
	AwaitingApproval bool    `json:"awaiting_approval"`
}

// RequestStatusView is a compensation request decorated with whether it is resolved
type RequestStatusView struct {
	*ledger.CompensationRequest
	Resolved bool `json:"resolved"`
}

// Case handlers

func (g *Gateway) handleCreateCase(w http.ResponseWriter, r *http.Request) {
	var req CreateCaseRequest
	if err := parseRequestBody(r, &req); err != nil {
		g.writeErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST", "Failed to parse request body", err.Error())
		return
	}
	if req.CaseID == "" {
		req.CaseID = uuid.New().String()
	}
	in := escalation.Intake{CaseID: req.CaseID, Message: req.Message, Player: req.Player}

	var (
		c   *escalation.Case
		err error
	)
	if deferred, _ := strconv.ParseBool(r.URL.Query().Get("defer")); deferred {
		c, err = g.cases.Open(r.Context(), in)
	} else {
		c, err = g.cases.Process(r.Context(), in)
	}
	if err != nil {
		g.writeDomainError(w, err, "Failed to process case "+req.CaseID)
		return
	}
	g.writeSuccessResponse(w, http.StatusCreated, g.caseView(c), nil)
}

func (g *Gateway) handleGetCase(w http.ResponseWriter, r *http.Request) {
	c, err := g.cases.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		g.writeDomainError(w, err, "Case not found")
		return
	}
	g.writeSuccessResponse(w, http.StatusOK, g.caseView(c), nil)
}

func (g *Gateway) handleListCases(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var state escalation.State
	if raw := query.Get("state"); raw != "" {
		parsed, ok := escalation.ParseState(raw)
		if !ok {
			g.writeErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST", "Unknown case state", raw)
			return
		}
		state = parsed
	}

	var olderThan time.Duration
	if raw := query.Get("older_than"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			g.writeErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid older_than duration", raw)
			return
		}
		olderThan = d
	}

	cases, err := g.cases.List(r.Context(), state, olderThan)
	if err != nil {
		g.writeDomainError(w, err, "Failed to list cases")
		return
	}
	views := make([]CaseView, 0, len(cases))
	for _, c := range cases {
		views = append(views, g.caseView(c))
	}
	g.writeSuccessResponse(w, http.StatusOK, views, &APIMeta{Total: len(views)})
}

func (g *Gateway) handleSubmitCase(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	c, err := g.cases.Submit(r.Context(), id)
	if err != nil {
		g.writeDomainError(w, err, "Failed to submit case "+id)
		return
	}
	g.writeSuccessResponse(w, http.StatusOK, g.caseView(c), nil)
}

func (g *Gateway) handleApproveCase(w http.ResponseWriter, r *http.Request) {
	var req ApproveCaseRequest
	if err := parseRequestBody(r, &req); err != nil || req.Agent == "" {
		g.writeErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST", "An approving agent is required", errDetails(err))
		return
	}

	id := mux.Vars(r)["id"]
	c, err := g.cases.Approve(r.Context(), id, req.Agent)
	if err != nil {
		g.writeDomainError(w, err, "Failed to approve case "+id)
		return
	}
	g.writeSuccessResponse(w, http.StatusOK, g.caseView(c), nil)
}

func (g *Gateway) handleRejectCase(w http.ResponseWriter, r *http.Request) {
	var req RejectCaseRequest
	if err := parseRequestBody(r, &req); err != nil || req.Agent == "" {
		g.writeErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST", "A rejecting agent is required", errDetails(err))
		return
	}

	id := mux.Vars(r)["id"]
	c, err := g.cases.Reject(r.Context(), id, req.Agent, req.Reason)
	if err != nil {
		g.writeDomainError(w, err, "Failed to reject case "+id)
		return
	}
	g.writeSuccessResponse(w, http.StatusOK, g.caseView(c), nil)
}

// Request handlers

func (g *Gateway) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := g.requests.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		g.writeDomainError(w, err, "Compensation request not found")
		return
	}
	g.writeSuccessResponse(w, http.StatusOK, RequestStatusView{CompensationRequest: req, Resolved: req.Status.Resolved()}, nil)
}

func (g *Gateway) handleDistributeRequest(w http.ResponseWriter, r *http.Request) {
	var req DistributeRequest
	if err := parseRequestBody(r, &req); err != nil || req.Actor == "" {
		g.writeErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST", "A distributing actor is required", errDetails(err))
		return
	}

	id := mux.Vars(r)["id"]
	result, err := g.requests.MarkDistributed(r.Context(), id, req.Actor)
	if err != nil {
		g.writeDomainError(w, err, "Failed to distribute request "+id)
		return
	}
	g.writeSuccessResponse(w, http.StatusOK, result, nil)
}

func (g *Gateway) handleListPlayerRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := g.requests.ListByPlayer(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		g.writeDomainError(w, err, "Failed to list requests")
		return
	}
	g.writeSuccessResponse(w, http.StatusOK, reqs, &APIMeta{Total: len(reqs)})
}

func (g *Gateway) caseView(c *escalation.Case) CaseView {
	return CaseView{
		Case:             c,
		AgeSeconds:       c.Age(g.now()).Seconds(),
		AwaitingApproval: c.AwaitingApproval(),
	}
}

// writeDomainError maps service errors to HTTP statuses
func (g *Gateway) writeDomainError(w http.ResponseWriter, err error, message string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, llm.ErrServiceUnavailable):
		g.writeErrorResponse(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", message, err.Error())
	case errors.Is(err, escalation.ErrCaseNotFound), errors.Is(err, ledger.ErrNotFound):
		g.writeErrorResponse(w, http.StatusNotFound, "NOT_FOUND", message, err.Error())
	case errors.Is(err, triage.ErrEmptyMessage), errors.Is(err, triage.ErrInvalidPlayer), errors.Is(err, ledger.ErrInvalidRequest):
		g.writeErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST", message, err.Error())
	case errors.Is(err, escalation.ErrNotAwaitingApproval), errors.Is(err, ledger.ErrInvalidTransition):
		g.writeErrorResponse(w, http.StatusConflict, "CONFLICT", message, err.Error())
	case errors.As(err, &maxBytes):
		g.writeErrorResponse(w, http.StatusRequestEntityTooLarge, "TOO_LARGE", message, err.Error())
	default:
		g.logger.Error("request failed", zap.String("message", message), zap.Error(err))
		g.writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR", message, err.Error())
	}
}

func errDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
