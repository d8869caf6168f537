// SPDX-FileCopyrightText: 2025 Moative
//
// SPDX-License-Identifier: Apache-2.0

package compose

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/moative/overlap-escalation/pkg/escalation"
	"github.com/moative/overlap-escalation/pkg/version"
)

// GeminiConfig configures the Gemini composer.
type GeminiConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	CompanyName string
	Timeout     time.Duration
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GeminiComposer generates messages through the Gemini generateContent API.
type GeminiComposer struct {
	client  *resty.Client
	model   string
	company string
	log     *zap.SugaredLogger
}

// NewGeminiComposer creates a composer. An empty API key is rejected.
func NewGeminiComposer(cfg GeminiConfig, log *zap.SugaredLogger) (*GeminiComposer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("gemini model is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("x-goog-api-key", cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", version.UserAgent("overlapd"))

	log.Infow("Initialized Gemini composer", "model", cfg.Model, "baseURL", cfg.BaseURL)
	return &GeminiComposer{client: client, model: cfg.Model, company: cfg.CompanyName, log: log.Named("gemini")}, nil
}

// Compose prompts the model for the message. Tier 1 main messages get an
// outreach email draft appended; a failing draft does not fail the message.
func (g *GeminiComposer) Compose(ctx context.Context, req escalation.ComposeRequest) (string, error) {
	text, err := g.generate(ctx, BuildPrompt(req))
	if err != nil {
		return "", err
	}
	if WantsEmailDraft(req) {
		draft, err := g.generate(ctx, BuildEmailPrompt(req, g.company))
		if err != nil {
			g.log.Warnw("Email draft generation failed, sending message without it", "recordId", req.Record.ID, "error", err)
		} else {
			text += EmailDraftSeparator + draft
		}
	}
	return text, nil
}

func (g *GeminiComposer) generate(ctx context.Context, prompt string) (string, error) {
	var out generateResponse
	var apiErr apiError
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(generateRequest{Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}}}).
		SetResult(&out).
		SetError(&apiErr).
		SetPathParam("model", g.model).
		Post("/v1beta/models/{model}:generateContent")
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = resp.Status()
		}
		return "", fmt.Errorf("gemini returned %d: %s", resp.StatusCode(), msg)
	}
	for _, c := range out.Candidates {
		var b strings.Builder
		for _, p := range c.Content.Parts {
			b.WriteString(p.Text)
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			return text, nil
		}
	}
	return "", fmt.Errorf("gemini returned no text")
}
