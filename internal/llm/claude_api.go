// Copyright 2026 The ACA Authors
// SPDX-License-Identifier: MIT

package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// defaultAPIModel is used in API mode when no model is configured.
	defaultAPIModel = "claude-sonnet-4-5-20250929"

	// defaultAPIMaxTokens is the output cap when the request sets none.
	defaultAPIMaxTokens = 4096
)

// anthropicClient sends Claude requests to the Messages API instead of the
// claude CLI. The SDK's own retries are disabled; retry is the caller's
// concern.
type anthropicClient struct {
	client anthropic.Client
}

func newAnthropicClient(apiKey, baseURL string, extra ...option.RequestOption) *anthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	opts = append(opts, extra...)
	return &anthropicClient{client: anthropic.NewClient(opts...)}
}

// complete sends one Messages request. The system message goes in the
// system field, so prompt should be rendered without it.
func (c *anthropicClient) complete(ctx context.Context, model, prompt string, req *Request) (*Response, error) {
	maxTokens := int64(defaultAPIMaxTokens)
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if sys := strings.TrimSpace(req.SystemMessage); sys != "" {
		params.System = []anthropic.TextBlockParam{{Text: sys}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, mapAPIError(ctx, err)
	}

	var content strings.Builder
	for _, block := range msg.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			content.WriteString(variant.Text)
		}
	}

	in, out := uint64(msg.Usage.InputTokens), uint64(msg.Usage.OutputTokens) //nolint:gosec // token counts are non-negative
	return &Response{
		Content:   content.String(),
		ModelUsed: string(msg.Model),
		Usage:     NewTokenUsage(in, out, estimateCost(string(msg.Model), in, out)),
		Metadata: map[string]any{
			"mode":        string(claudeModeAPI),
			"message_id":  msg.ID,
			"stop_reason": string(msg.StopReason),
		},
	}, nil
}

// ping lists models as a cheap authenticated probe.
func (c *anthropicClient) ping(ctx context.Context) error {
	if _, err := c.client.Models.List(ctx, anthropic.ModelListParams{}); err != nil {
		return mapAPIError(ctx, err)
	}
	return nil
}

// mapAPIError maps SDK errors onto the taxonomy. Context errors pass through
// unchanged.
func mapAPIError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return wrapError(KindNetwork, err.Error(), err)
	}
	msg := apiErr.Error()
	switch code := apiErr.StatusCode; {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return wrapError(KindAuthentication, msg, err)
	case code == http.StatusTooManyRequests:
		return wrapError(KindRateLimit, msg, err)
	case code == http.StatusNotFound:
		return wrapError(KindModelUnavailable, msg, err)
	case code == http.StatusRequestEntityTooLarge,
		code == http.StatusBadRequest && containsAny(strings.ToLower(msg), contextSignatures):
		return wrapError(KindContextTooLarge, msg, err)
	case code == http.StatusBadRequest:
		return wrapError(KindInvalidRequest, msg, err)
	case code >= 500:
		return wrapError(KindProviderUnavailable, msg, err)
	default:
		return wrapError(KindProviderSpecific, msg, err)
	}
}
