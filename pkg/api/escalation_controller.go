package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moative/overlap-escalation/pkg/apiresponses"
	"github.com/moative/overlap-escalation/pkg/escalation"
	"github.com/moative/overlap-escalation/pkg/notify"
	"github.com/moative/overlap-escalation/pkg/overlap"
	"github.com/moative/overlap-escalation/pkg/system"
)

// Escalator is the escalation core as seen by the HTTP layer.
type Escalator interface {
	Trigger(ctx context.Context, source, excludeID string) escalation.TriggerResult
	Resolve(ctx context.Context, id, resolvedBy string) escalation.ResolveResult
	Active() (string, bool)
	State(id string) (escalation.State, bool)
	States() []escalation.State
	Candidates(ctx context.Context) ([]overlap.Candidate, error)
}

// EscalationController exposes trigger, resolve and status endpoints.
type EscalationController struct {
	escalator Escalator
	log       *zap.SugaredLogger
}

func NewEscalationController(log *zap.SugaredLogger, escalator Escalator) *EscalationController {
	return &EscalationController{escalator: escalator, log: log.Named("escalation-api")}
}

func (EscalationController) BasePath() string {
	return ""
}

func (EscalationController) Handlers() []gin.HandlerFunc {
	return nil
}

func (ec *EscalationController) Register(rg *gin.RouterGroup) error {
	rg.GET("/escalation/active", ec.handleGetActive)
	rg.GET("/escalation/states", ec.handleListStates)
	rg.GET("/escalation/state/:id", ec.handleGetState)
	rg.POST("/escalation/trigger", ec.handleTrigger)
	rg.POST("/escalation/resolve", ec.handleResolve)
	// Chat buttons post JSON, Slack interactivity posts a form. There is no
	// GET variant: link unfurlers and prefetchers must not resolve overlaps.
	rg.POST("/resolve-overlap", ec.handleResolve)
	return nil
}

// ActiveResponse is returned by GET /api/escalation/active.
type ActiveResponse struct {
	Active   bool              `json:"active"`
	RecordID string            `json:"record_id,omitempty"`
	State    *escalation.State `json:"state,omitempty"`
}

func (ec *EscalationController) handleGetActive(c *gin.Context) {
	id, ok := ec.escalator.Active()
	if !ok {
		apiresponses.RespondOK(c, ActiveResponse{Active: false})
		return
	}
	resp := ActiveResponse{Active: true, RecordID: id}
	if st, found := ec.escalator.State(id); found {
		resp.State = &st
	}
	apiresponses.RespondOK(c, resp)
}

func (ec *EscalationController) handleListStates(c *gin.Context) {
	states := ec.escalator.States()
	if states == nil {
		states = []escalation.State{}
	}
	apiresponses.RespondOK(c, states)
}

func (ec *EscalationController) handleGetState(c *gin.Context) {
	id := c.Param("id")
	st, ok := ec.escalator.State(id)
	if !ok {
		apiresponses.RespondNotFound(c, "escalation state", id)
		return
	}
	apiresponses.RespondOK(c, st)
}

type triggerRequest struct {
	ExcludeID string `json:"excludeId"`
}

func (ec *EscalationController) handleTrigger(c *gin.Context) {
	log := system.GetReqLogger(c, ec.log)

	var req triggerRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apiresponses.RespondBadRequestWithDetails(c, "invalid trigger request", err.Error())
			return
		}
	}

	res := ec.escalator.Trigger(c.Request.Context(), escalation.SourceAPI, req.ExcludeID)
	switch res.Outcome {
	case escalation.OutcomeStarted:
		apiresponses.RespondAccepted(c, res)
	case escalation.OutcomeFailed:
		apiresponses.RespondInternalError(c, "trigger escalation", errors.New(res.Error), log)
	default:
		apiresponses.RespondOK(c, res)
	}
}

// ResolveRequest is the JSON body of the resolve endpoints.
type ResolveRequest struct {
	RecordID   string `json:"record_id"`
	ResolvedBy string `json:"resolved_by"`
}

// ResolveResponse reports the resolution and the follow-up trigger.
type ResolveResponse struct {
	Message         string                   `json:"message"`
	RecordID        string                   `json:"record_id"`
	WasActive       bool                     `json:"was_active"`
	AlreadyResolved bool                     `json:"already_resolved"`
	Next            escalation.TriggerResult `json:"next"`
}

func (ec *EscalationController) handleResolve(c *gin.Context) {
	log := system.GetReqLogger(c, ec.log)

	req, err := parseResolveRequest(c)
	if err != nil {
		apiresponses.RespondBadRequestWithDetails(c, "invalid resolve request", err.Error())
		return
	}
	if req.RecordID == "" {
		log.Warnw("Resolve request without record id")
		apiresponses.RespondBadRequest(c, "missing record_id")
		return
	}
	if req.ResolvedBy == "" {
		req.ResolvedBy = "api"
	}

	ctx := c.Request.Context()
	res := ec.escalator.Resolve(ctx, req.RecordID, req.ResolvedBy)
	next := ec.escalator.Trigger(ctx, escalation.SourceResolve, req.RecordID)
	log.Infow("Overlap resolved via API", "recordId", req.RecordID, "resolvedBy", req.ResolvedBy,
		"wasActive", res.WasActive, "next", next.Outcome, "nextRecordId", next.RecordID)

	apiresponses.RespondOK(c, ResolveResponse{
		Message:         "Overlap " + req.RecordID + " resolved",
		RecordID:        req.RecordID,
		WasActive:       res.WasActive,
		AlreadyResolved: res.AlreadyResolved,
		Next:            next,
	})
}

// slackInteraction is the subset of a Slack block_actions payload we read.
type slackInteraction struct {
	User struct {
		Username string `json:"username"`
		Name     string `json:"name"`
	} `json:"user"`
	Actions []struct {
		ActionID string `json:"action_id"`
		Value    string `json:"value"`
	} `json:"actions"`
}

// parseResolveRequest accepts a JSON body, a Slack interactivity form
// (payload=...) or, for an empty POST, a record_id query parameter.
func parseResolveRequest(c *gin.Context) (ResolveRequest, error) {
	var req ResolveRequest
	if strings.HasPrefix(c.ContentType(), "application/x-www-form-urlencoded") {
		payload := c.PostForm("payload")
		if payload == "" {
			req.RecordID = c.PostForm("record_id")
			req.ResolvedBy = c.PostForm("resolved_by")
			return req, nil
		}
		var in slackInteraction
		if err := json.Unmarshal([]byte(payload), &in); err != nil {
			return req, err
		}
		for _, a := range in.Actions {
			if a.ActionID == notify.ResolveActionID {
				req.RecordID = a.Value
				break
			}
		}
		req.ResolvedBy = in.User.Username
		if req.ResolvedBy == "" {
			req.ResolvedBy = in.User.Name
		}
		if req.ResolvedBy != "" {
			req.ResolvedBy = "slack:" + req.ResolvedBy
		}
		return req, nil
	}

	if c.Request.ContentLength == 0 {
		req.RecordID = c.Query("record_id")
		return req, nil
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		return req, err
	}
	return req, nil
}
