package client

import (
	"context"
	"net/url"

	"github.com/moative/overlap-escalation/pkg/api"
	"github.com/moative/overlap-escalation/pkg/escalation"
)

type EscalationClient struct {
	c *Client
}

func (c *Client) Escalation() *EscalationClient {
	return &EscalationClient{c: c}
}

func (e *EscalationClient) Active(ctx context.Context) (api.ActiveResponse, error) {
	var out api.ActiveResponse
	err := e.c.do(ctx, "GET", "/api/escalation/active", nil, &out)
	return out, err
}

func (e *EscalationClient) Trigger(ctx context.Context, excludeID string) (escalation.TriggerResult, error) {
	var out escalation.TriggerResult
	body := map[string]string{}
	if excludeID != "" {
		body["excludeId"] = excludeID
	}
	err := e.c.do(ctx, "POST", "/api/escalation/trigger", body, &out)
	return out, err
}

func (e *EscalationClient) Resolve(ctx context.Context, recordID, resolvedBy string) (api.ResolveResponse, error) {
	var out api.ResolveResponse
	err := e.c.do(ctx, "POST", "/api/escalation/resolve", api.ResolveRequest{RecordID: recordID, ResolvedBy: resolvedBy}, &out)
	return out, err
}

func (e *EscalationClient) State(ctx context.Context, recordID string) (escalation.State, error) {
	var out escalation.State
	err := e.c.do(ctx, "GET", "/api/escalation/state/"+url.PathEscape(recordID), nil, &out)
	return out, err
}

func (e *EscalationClient) States(ctx context.Context) ([]escalation.State, error) {
	var out []escalation.State
	err := e.c.do(ctx, "GET", "/api/escalation/states", nil, &out)
	return out, err
}
