package client

import (
	"context"

	"github.com/moative/overlap-escalation/pkg/api"
	"github.com/moative/overlap-escalation/pkg/overlap"
	"github.com/moative/overlap-escalation/pkg/store"
)

type WeightsClient struct {
	c *Client
}

func (c *Client) Weights() *WeightsClient {
	return &WeightsClient{c: c}
}

func (w *WeightsClient) List(ctx context.Context) ([]store.Weight, error) {
	var out []store.Weight
	err := w.c.do(ctx, "GET", "/api/weights", nil, &out)
	return out, err
}

func (w *WeightsClient) Update(ctx context.Context, ws overlap.WeightSet) (api.MutationResponse, error) {
	var out api.MutationResponse
	err := w.c.do(ctx, "POST", "/api/weights", ws, &out)
	return out, err
}
