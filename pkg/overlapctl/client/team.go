package client

import (
	"context"
	"strconv"

	"github.com/moative/overlap-escalation/pkg/api"
	"github.com/moative/overlap-escalation/pkg/escalation"
)

type TeamClient struct {
	c *Client
}

func (c *Client) Team() *TeamClient {
	return &TeamClient{c: c}
}

func (t *TeamClient) List(ctx context.Context) ([]escalation.TeamMember, error) {
	var out []escalation.TeamMember
	err := t.c.do(ctx, "GET", "/api/team", nil, &out)
	return out, err
}

func (t *TeamClient) Hierarchy(ctx context.Context) (api.HierarchyResponse, error) {
	var out api.HierarchyResponse
	err := t.c.do(ctx, "GET", "/api/team/hierarchy", nil, &out)
	return out, err
}

func (t *TeamClient) Add(ctx context.Context, m escalation.TeamMember) (api.MutationResponse, error) {
	var out api.MutationResponse
	err := t.c.do(ctx, "POST", "/api/team", m, &out)
	return out, err
}

func (t *TeamClient) Update(ctx context.Context, m escalation.TeamMember) (api.MutationResponse, error) {
	var out api.MutationResponse
	err := t.c.do(ctx, "PUT", "/api/team/"+strconv.FormatInt(m.ID, 10), m, &out)
	return out, err
}

func (t *TeamClient) Delete(ctx context.Context, id int64) (api.MutationResponse, error) {
	var out api.MutationResponse
	err := t.c.do(ctx, "DELETE", "/api/team/"+strconv.FormatInt(id, 10), nil, &out)
	return out, err
}
