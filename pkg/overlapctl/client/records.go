package client

import (
	"context"
	"net/url"

	"github.com/moative/overlap-escalation/pkg/api"
	"github.com/moative/overlap-escalation/pkg/overlap"
)

type RecordsClient struct {
	c *Client
}

func (c *Client) Records() *RecordsClient {
	return &RecordsClient{c: c}
}

func (r *RecordsClient) List(ctx context.Context) ([]overlap.Record, error) {
	var out []overlap.Record
	err := r.c.do(ctx, "GET", "/api/records", nil, &out)
	return out, err
}

func (r *RecordsClient) Get(ctx context.Context, id string) (overlap.Record, error) {
	var out overlap.Record
	err := r.c.do(ctx, "GET", "/api/records/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (r *RecordsClient) Upsert(ctx context.Context, rec overlap.Record) (api.MutationResponse, error) {
	var out api.MutationResponse
	err := r.c.do(ctx, "PUT", "/api/records", rec, &out)
	return out, err
}

func (r *RecordsClient) Import(ctx context.Context, records []overlap.Record) (api.MutationResponse, error) {
	var out api.MutationResponse
	err := r.c.do(ctx, "POST", "/api/records/import", records, &out)
	return out, err
}

func (r *RecordsClient) Delete(ctx context.Context, id string) error {
	return r.c.do(ctx, "DELETE", "/api/records/"+url.PathEscape(id), nil, nil)
}

func (r *RecordsClient) Scores(ctx context.Context) ([]api.RecordScore, error) {
	var out []api.RecordScore
	err := r.c.do(ctx, "GET", "/api/records/scores", nil, &out)
	return out, err
}

func (r *RecordsClient) Ranking(ctx context.Context) ([]api.RankedCandidate, error) {
	var out []api.RankedCandidate
	err := r.c.do(ctx, "GET", "/api/records/ranking", nil, &out)
	return out, err
}
