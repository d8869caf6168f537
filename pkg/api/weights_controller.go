package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moative/overlap-escalation/pkg/apiresponses"
	"github.com/moative/overlap-escalation/pkg/audit"
	"github.com/moative/overlap-escalation/pkg/escalation"
	"github.com/moative/overlap-escalation/pkg/overlap"
	"github.com/moative/overlap-escalation/pkg/store"
	"github.com/moative/overlap-escalation/pkg/system"
)

// WeightRepository is the weight persistence used by WeightsController.
type WeightRepository interface {
	ListWeights(ctx context.Context) ([]store.Weight, error)
	SetWeights(ctx context.Context, ws overlap.WeightSet) error
}

type WeightsController struct {
	weights   WeightRepository
	escalator Escalator
	recorder  audit.Recorder
	log       *zap.SugaredLogger
}

func NewWeightsController(log *zap.SugaredLogger, weights WeightRepository, escalator Escalator, recorder audit.Recorder) *WeightsController {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &WeightsController{weights: weights, escalator: escalator, recorder: recorder, log: log.Named("weights-api")}
}

func (WeightsController) BasePath() string {
	return "weights"
}

func (WeightsController) Handlers() []gin.HandlerFunc {
	return nil
}

func (wc *WeightsController) Register(rg *gin.RouterGroup) error {
	rg.GET("", wc.handleList)
	rg.POST("", wc.handleUpdate)
	return nil
}

func (wc *WeightsController) handleList(c *gin.Context) {
	weights, err := wc.weights.ListWeights(c.Request.Context())
	if err != nil {
		apiresponses.RespondInternalError(c, "list weights", err, system.GetReqLogger(c, wc.log))
		return
	}
	if weights == nil {
		weights = []store.Weight{}
	}
	apiresponses.RespondOK(c, weights)
}

// weightValue accepts either a bare number or {"weight": n}.
type weightValue float64

func (w *weightValue) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*w = weightValue(f)
		return nil
	}
	var obj struct {
		Weight *float64 `json:"weight"`
	}
	if err := json.Unmarshal(data, &obj); err != nil || obj.Weight == nil {
		return fmt.Errorf("weight must be a number or {\"weight\": n}")
	}
	*w = weightValue(*obj.Weight)
	return nil
}

// ParseWeightUpdate decodes {"opportunity": {...}, "partner": {...}}.
func ParseWeightUpdate(data []byte) (overlap.WeightSet, error) {
	var raw map[string]map[string]weightValue
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	ws := overlap.WeightSet{}
	for section, values := range raw {
		sec := overlap.Section(section)
		if _, ok := overlap.SectionAttributes[sec]; !ok {
			return nil, fmt.Errorf("unknown weight section %q", section)
		}
		m := make(map[string]float64, len(values))
		for name, v := range values {
			m[name] = float64(v)
		}
		ws[sec] = m
	}
	if len(ws) == 0 {
		return nil, fmt.Errorf("no weights given")
	}
	return ws, nil
}

func (wc *WeightsController) handleUpdate(c *gin.Context) {
	log := system.GetReqLogger(c, wc.log)

	data, err := c.GetRawData()
	if err != nil {
		apiresponses.RespondBadRequest(c, "failed to read request body")
		return
	}
	ws, err := ParseWeightUpdate(data)
	if err != nil {
		apiresponses.RespondBadRequestWithDetails(c, "invalid weights", err.Error())
		return
	}
	if err := wc.weights.SetWeights(c.Request.Context(), ws); err != nil {
		respondStoreError(c, "update weights", err, log)
		return
	}

	n := 0
	for _, m := range ws {
		n += len(m)
	}
	log.Infow("Scoring weights updated", "count", n)
	ev := audit.NewEvent(audit.EventWeightsUpdated, "").WithDetail("count", n)
	for section, m := range ws {
		ev.WithDetail(string(section), m)
	}
	wc.recorder.Emit(ev)

	res := wc.escalator.Trigger(c.Request.Context(), escalation.SourceWeights, "")
	apiresponses.RespondOK(c, MutationResponse{Message: "Weights updated", Count: n, Trigger: res})
}
