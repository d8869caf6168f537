package api

import (
	"context"
	"errors"
	"math"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moative/overlap-escalation/pkg/apiresponses"
	"github.com/moative/overlap-escalation/pkg/audit"
	"github.com/moative/overlap-escalation/pkg/escalation"
	"github.com/moative/overlap-escalation/pkg/overlap"
	"github.com/moative/overlap-escalation/pkg/store"
	"github.com/moative/overlap-escalation/pkg/system"
)

// RecordRepository is the record persistence used by RecordsController.
type RecordRepository interface {
	ListRecords(ctx context.Context) ([]overlap.Record, error)
	GetRecord(ctx context.Context, id string) (*overlap.Record, error)
	UpsertRecord(ctx context.Context, rec overlap.Record) error
	ImportRecords(ctx context.Context, records []overlap.Record) (int, error)
	DeleteRecord(ctx context.Context, id string) error
}

type RecordsController struct {
	records   RecordRepository
	escalator Escalator
	recorder  audit.Recorder
	log       *zap.SugaredLogger
}

func NewRecordsController(log *zap.SugaredLogger, records RecordRepository, escalator Escalator, recorder audit.Recorder) *RecordsController {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &RecordsController{records: records, escalator: escalator, recorder: recorder, log: log.Named("records-api")}
}

func (RecordsController) BasePath() string {
	return "records"
}

func (RecordsController) Handlers() []gin.HandlerFunc {
	return nil
}

func (rc *RecordsController) Register(rg *gin.RouterGroup) error {
	rg.GET("", rc.handleList)
	rg.PUT("", rc.handleUpsert)
	rg.POST("/import", rc.handleImport)
	rg.GET("/scores", rc.handleScores)
	rg.GET("/ranking", rc.handleRanking)
	rg.GET("/:id", rc.handleGet)
	rg.DELETE("/:id", rc.handleDelete)
	return nil
}

func (rc *RecordsController) handleList(c *gin.Context) {
	records, err := rc.records.ListRecords(c.Request.Context())
	if err != nil {
		apiresponses.RespondInternalError(c, "list records", err, system.GetReqLogger(c, rc.log))
		return
	}
	if records == nil {
		records = []overlap.Record{}
	}
	apiresponses.RespondOK(c, records)
}

func (rc *RecordsController) handleGet(c *gin.Context) {
	id := c.Param("id")
	rec, err := rc.records.GetRecord(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		apiresponses.RespondNotFound(c, "record", id)
		return
	}
	if err != nil {
		apiresponses.RespondInternalError(c, "get record", err, system.GetReqLogger(c, rc.log))
		return
	}
	apiresponses.RespondOK(c, rec)
}

// MutationResponse is returned by endpoints that change escalation inputs.
type MutationResponse struct {
	Message string                   `json:"message"`
	ID      interface{}              `json:"id,omitempty"`
	Count   int                      `json:"count,omitempty"`
	Trigger escalation.TriggerResult `json:"trigger"`
}

func (rc *RecordsController) handleUpsert(c *gin.Context) {
	log := system.GetReqLogger(c, rc.log)

	var rec overlap.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		apiresponses.RespondBadRequestWithDetails(c, "invalid record", err.Error())
		return
	}
	if rec.ID == "" {
		apiresponses.RespondBadRequest(c, "record id is required")
		return
	}
	if err := rc.records.UpsertRecord(c.Request.Context(), rec); err != nil {
		respondStoreError(c, "upsert record", err, log)
		return
	}
	log.Infow("Record upserted", system.RecordFields(rec.ID, rec.Name())...)
	rc.recorder.Emit(audit.NewEvent(audit.EventRecordUpdated, rec.ID).WithDetail("operation", "upsert"))

	res := rc.escalator.Trigger(c.Request.Context(), escalation.SourceRecords, "")
	apiresponses.RespondOK(c, MutationResponse{Message: "Record saved", ID: rec.ID, Trigger: res})
}

func (rc *RecordsController) handleImport(c *gin.Context) {
	log := system.GetReqLogger(c, rc.log)

	records, err := store.DecodeRecords(c.Request.Body)
	if err != nil {
		apiresponses.RespondBadRequestWithDetails(c, "invalid records", err.Error())
		return
	}
	n, err := rc.records.ImportRecords(c.Request.Context(), records)
	if err != nil {
		respondStoreError(c, "import records", err, log)
		return
	}
	log.Infow("Records imported", "received", len(records), "imported", n)
	rc.recorder.Emit(audit.NewEvent(audit.EventRecordUpdated, "").
		WithDetail("operation", "import").
		WithDetail("count", n))

	res := rc.escalator.Trigger(c.Request.Context(), escalation.SourceRecords, "")
	apiresponses.RespondOK(c, MutationResponse{Message: "Records imported", Count: n, Trigger: res})
}

func (rc *RecordsController) handleDelete(c *gin.Context) {
	log := system.GetReqLogger(c, rc.log)
	id := c.Param("id")
	if err := rc.records.DeleteRecord(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			apiresponses.RespondNotFound(c, "record", id)
			return
		}
		apiresponses.RespondInternalError(c, "delete record", err, log)
		return
	}
	log.Infow("Record deleted", system.RecordFields(id, "")...)
	rc.recorder.Emit(audit.NewEvent(audit.EventRecordUpdated, id).WithDetail("operation", "delete"))
	apiresponses.RespondNoContent(c)
}

// RecordScore is one row of GET /api/records/scores.
type RecordScore struct {
	overlap.Record
	OpportunityScore     float64               `json:"opportunity_score"`
	PartnerScore         float64               `json:"partner_score"`
	CombinedScorePercent float64               `json:"combined_score_percent"`
	PriorityScore        float64               `json:"priority_score"`
	PriorityLevel        overlap.PriorityLevel `json:"priority_level"`
}

func (rc *RecordsController) handleScores(c *gin.Context) {
	candidates, err := rc.escalator.Candidates(c.Request.Context())
	if err != nil {
		apiresponses.RespondInternalError(c, "compute scores", err, system.GetReqLogger(c, rc.log))
		return
	}
	out := make([]RecordScore, 0, len(candidates))
	for _, cand := range candidates {
		out = append(out, scoreRow(cand))
	}
	apiresponses.RespondOK(c, out)
}

func scoreRow(cand overlap.Candidate) RecordScore {
	row := RecordScore{
		Record:        cand.Record,
		PriorityScore: cand.Context.PriorityScore,
		PriorityLevel: cand.Context.PriorityLevel,
	}
	var sum float64
	var n int
	if s := cand.Context.OpportunityScore; s != nil {
		row.OpportunityScore = *s
		sum += *s
		n++
	}
	if s := cand.Context.PartnerScore; s != nil {
		row.PartnerScore = *s
		sum += *s
		n++
	}
	if n > 0 {
		combined := math.Min(sum/float64(n), overlap.MaxScore)
		row.CombinedScorePercent = combined / overlap.MaxScore * 100
	}
	return row
}

// RankedCandidate is one row of GET /api/records/ranking.
type RankedCandidate struct {
	Rank     int                     `json:"rank"`
	RecordID string                  `json:"record_id"`
	Name     string                  `json:"name"`
	Partner  string                  `json:"partner_name"`
	Context  overlap.PriorityContext `json:"context"`
	Eligible bool                    `json:"eligible"`
	State    *escalation.State       `json:"state,omitempty"`
}

func (rc *RecordsController) handleRanking(c *gin.Context) {
	candidates, err := rc.escalator.Candidates(c.Request.Context())
	if err != nil {
		apiresponses.RespondInternalError(c, "rank records", err, system.GetReqLogger(c, rc.log))
		return
	}
	out := make([]RankedCandidate, 0, len(candidates))
	for i, cand := range candidates {
		row := RankedCandidate{
			Rank:     i + 1,
			RecordID: cand.Record.ID,
			Name:     cand.Record.Name(),
			Partner:  cand.Record.PartnerName,
			Context:  cand.Context,
			Eligible: cand.Record.ID != "" && cand.Context.Qualifies(),
		}
		if st, ok := rc.escalator.State(cand.Record.ID); ok {
			row.State = &st
			if st.Resolved || st.Processed {
				row.Eligible = false
			}
		}
		out = append(out, row)
	}
	apiresponses.RespondOK(c, out)
}

// respondStoreError maps validation failures to 400 and everything else to 500.
func respondStoreError(c *gin.Context, operation string, err error, log *zap.SugaredLogger) {
	switch {
	case errors.Is(err, store.ErrInvalid):
		apiresponses.RespondBadRequestWithDetails(c, "failed to "+operation, err.Error())
	case errors.Is(err, store.ErrNotFound):
		apiresponses.RespondNotFound(c, "resource", err.Error())
	default:
		apiresponses.RespondInternalError(c, operation, err, log)
	}
}
