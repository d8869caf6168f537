package api

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moative/overlap-escalation/pkg/apiresponses"
	"github.com/moative/overlap-escalation/pkg/audit"
	"github.com/moative/overlap-escalation/pkg/escalation"
	"github.com/moative/overlap-escalation/pkg/store"
	"github.com/moative/overlap-escalation/pkg/system"
)

// TeamRepository is the roster persistence used by TeamController.
type TeamRepository interface {
	ListMembers(ctx context.Context) ([]escalation.TeamMember, error)
	Hierarchy(ctx context.Context) ([]escalation.HierarchyLevel, error)
	AddMember(ctx context.Context, m escalation.TeamMember) (escalation.TeamMember, error)
	UpdateMember(ctx context.Context, m escalation.TeamMember) error
	DeleteMember(ctx context.Context, id int64) error
}

type TeamController struct {
	team      TeamRepository
	escalator Escalator
	recorder  audit.Recorder
	log       *zap.SugaredLogger
}

func NewTeamController(log *zap.SugaredLogger, team TeamRepository, escalator Escalator, recorder audit.Recorder) *TeamController {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &TeamController{team: team, escalator: escalator, recorder: recorder, log: log.Named("team-api")}
}

func (TeamController) BasePath() string {
	return "team"
}

func (TeamController) Handlers() []gin.HandlerFunc {
	return nil
}

func (tc *TeamController) Register(rg *gin.RouterGroup) error {
	rg.GET("", tc.handleList)
	rg.GET("/hierarchy", tc.handleHierarchy)
	rg.POST("", tc.handleAdd)
	rg.PUT("/:id", tc.handleUpdate)
	rg.DELETE("/:id", tc.handleDelete)
	return nil
}

func (tc *TeamController) handleList(c *gin.Context) {
	members, err := tc.team.ListMembers(c.Request.Context())
	if err != nil {
		apiresponses.RespondInternalError(c, "list team members", err, system.GetReqLogger(c, tc.log))
		return
	}
	if members == nil {
		members = []escalation.TeamMember{}
	}
	apiresponses.RespondOK(c, members)
}

// HierarchyResponse lists tiers with the designation shown in messages.
type HierarchyResponse struct {
	Levels       []escalation.HierarchyLevel `json:"levels"`
	Designations map[int]string              `json:"designations"`
}

func (tc *TeamController) handleHierarchy(c *gin.Context) {
	levels, err := tc.team.Hierarchy(c.Request.Context())
	if err != nil {
		apiresponses.RespondInternalError(c, "load team hierarchy", err, system.GetReqLogger(c, tc.log))
		return
	}
	staffed := staffedLevels(levels)
	apiresponses.RespondOK(c, HierarchyResponse{Levels: staffed, Designations: escalation.Designations(staffed)})
}

// staffedLevels drops tiers without members. The runner still sees them.
func staffedLevels(levels []escalation.HierarchyLevel) []escalation.HierarchyLevel {
	out := make([]escalation.HierarchyLevel, 0, len(levels))
	for _, lvl := range levels {
		if len(lvl.Members) > 0 {
			out = append(out, lvl)
		}
	}
	return out
}

func (tc *TeamController) handleAdd(c *gin.Context) {
	log := system.GetReqLogger(c, tc.log)

	var m escalation.TeamMember
	if err := c.ShouldBindJSON(&m); err != nil {
		apiresponses.RespondBadRequestWithDetails(c, "invalid team member", err.Error())
		return
	}
	m.ID = 0
	added, err := tc.team.AddMember(c.Request.Context(), m)
	if err != nil {
		respondStoreError(c, "add team member", err, log)
		return
	}
	log.Infow("Team member added", "memberId", added.ID, "hierarchy", added.Hierarchy)
	tc.emit("add", added.ID)

	res := tc.escalator.Trigger(c.Request.Context(), escalation.SourceTeam, "")
	apiresponses.RespondCreated(c, MutationResponse{Message: "Team member added successfully", ID: added.ID, Trigger: res})
}

func (tc *TeamController) handleUpdate(c *gin.Context) {
	log := system.GetReqLogger(c, tc.log)

	id, ok := memberID(c)
	if !ok {
		return
	}
	var m escalation.TeamMember
	if err := c.ShouldBindJSON(&m); err != nil {
		apiresponses.RespondBadRequestWithDetails(c, "invalid team member", err.Error())
		return
	}
	m.ID = id
	if err := tc.team.UpdateMember(c.Request.Context(), m); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apiresponses.RespondNotFound(c, "team member", c.Param("id"))
			return
		}
		respondStoreError(c, "update team member", err, log)
		return
	}
	log.Infow("Team member updated", "memberId", id, "hierarchy", m.Hierarchy)
	tc.emit("update", id)

	res := tc.escalator.Trigger(c.Request.Context(), escalation.SourceTeam, "")
	apiresponses.RespondOK(c, MutationResponse{Message: "Team member updated successfully", ID: id, Trigger: res})
}

func (tc *TeamController) handleDelete(c *gin.Context) {
	log := system.GetReqLogger(c, tc.log)

	id, ok := memberID(c)
	if !ok {
		return
	}
	if err := tc.team.DeleteMember(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apiresponses.RespondNotFound(c, "team member", c.Param("id"))
			return
		}
		apiresponses.RespondInternalError(c, "delete team member", err, log)
		return
	}
	log.Infow("Team member deleted", "memberId", id)
	tc.emit("delete", id)

	res := tc.escalator.Trigger(c.Request.Context(), escalation.SourceTeam, "")
	apiresponses.RespondOK(c, MutationResponse{Message: "Team member deleted successfully", ID: id, Trigger: res})
}

func (tc *TeamController) emit(operation string, id int64) {
	tc.recorder.Emit(audit.NewEvent(audit.EventTeamUpdated, "").
		WithDetail("operation", operation).
		WithDetail("memberId", id))
}

func memberID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		apiresponses.RespondBadRequest(c, "invalid team member id: "+c.Param("id"))
		return 0, false
	}
	return id, true
}
