package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/moative/overlap-escalation/pkg/audit"
	"github.com/moative/overlap-escalation/pkg/compose"
	"github.com/moative/overlap-escalation/pkg/config"
	"github.com/moative/overlap-escalation/pkg/escalation"
	"github.com/moative/overlap-escalation/pkg/overlap"
	"github.com/moative/overlap-escalation/pkg/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type captureRecorder struct {
	mu     sync.Mutex
	events []*audit.Event
}

func (r *captureRecorder) Emit(e *audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *captureRecorder) types() []audit.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type countingNotifier struct {
	mu   sync.Mutex
	sent []escalation.Notification
}

func (n *countingNotifier) Notify(_ context.Context, _ escalation.TeamMember, note escalation.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
	return nil
}

type testEnv struct {
	server   *Server
	store    *store.Store
	esc      *escalation.Controller
	notifier *countingNotifier
	recorder *captureRecorder
}

func newTestEnv(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()
	log := zaptest.NewLogger(t)

	st, err := store.Open(":memory:", log.Sugar())
	require.NoError(t, err)

	templates, err := compose.NewTemplateComposer(nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	env := &testEnv{store: st, notifier: &countingNotifier{}, recorder: &captureRecorder{}}
	env.esc = escalation.NewController(ctx, log.Sugar(), escalation.NewTracker(), overlap.NewEngine(),
		escalation.Dependencies{
			Records:  st,
			Weights:  st,
			Team:     st,
			Composer: templates,
			Notifier: env.notifier,
			Recorder: env.recorder,
		},
		// Long enough that a run never advances past its first message in a test.
		escalation.Config{MessageDelay: time.Hour})

	env.server = NewServer(log, cfg, false, st)
	require.NoError(t, env.server.RegisterAll([]APIController{
		NewEscalationController(log.Sugar(), env.esc),
		NewRecordsController(log.Sugar(), st, env.esc, env.recorder),
		NewTeamController(log.Sugar(), st, env.esc, env.recorder),
		NewWeightsController(log.Sugar(), st, env.esc, env.recorder),
	}))

	t.Cleanup(func() {
		cancel()
		env.esc.Wait()
		env.server.Close()
		_ = st.Close()
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (e *testEnv) addMember(t *testing.T, name string, tier int) escalation.TeamMember {
	t.Helper()
	m, err := e.store.AddMember(context.Background(), escalation.TeamMember{
		Name:        name,
		Designation: "Tier " + name,
		Hierarchy:   tier,
		ChannelID:   "C-" + name,
		WebhookURL:  "https://hooks.example.com/" + name,
		MaxMessage:  1,
	})
	require.NoError(t, err)
	return m
}

func scoredRecord(id, name string, v float64) overlap.Record {
	o := overlap.Ordinal(v)
	return overlap.Record{
		ID:              id,
		OpportunityName: name,
		PartnerName:     "Partner " + name,
		Opportunity: &overlap.OpportunityAttributes{
			Size: o, RelationshipStatus: o, Engagement: o, Stage: o, Winnability: o,
		},
	}
}

func okStatus(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
