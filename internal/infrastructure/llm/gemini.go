package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"NewsVideoPipeline/internal/config"
	"NewsVideoPipeline/internal/domain"
	"NewsVideoPipeline/internal/ports"
)

const jsonMimeType = "application/json"

// GeminiClient implements ports.TextGenerator on the Gemini generateContent API.
type GeminiClient struct {
	svc             *generativelanguage.Service
	temperature     float64
	maxOutputTokens int64
}

var _ ports.TextGenerator = (*GeminiClient)(nil)

// NewGeminiClient builds a client from configuration. A missing API key is
// reported by Generate so stages that never call the model still run.
// Extra options override transport settings, mainly for tests.
func NewGeminiClient(ctx context.Context, cfg config.GeneratorConfig, opts ...option.ClientOption) (*GeminiClient, error) {
	c := &GeminiClient{
		temperature:     cfg.Temperature,
		maxOutputTokens: int64(cfg.MaxOutputTokens),
	}
	if !config.IsSet(cfg.Gemini.APIKey) && len(opts) == 0 {
		return c, nil
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(cfg.Gemini.APIKey)}
	if cfg.Gemini.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.Gemini.Endpoint))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := generativelanguage.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gemini service: %w", err)
	}
	c.svc = svc
	return c, nil
}

// Generate asks model for a JSON response to prompt.
func (c *GeminiClient) Generate(ctx context.Context, prompt, model string) (string, error) {
	if c == nil || c.svc == nil {
		return "", &domain.ConfigError{Setting: "GEMINI_API_KEY", Hint: "get a free key at https://aistudio.google.com/apikey"}
	}

	req := &generativelanguage.GenerateContentRequest{
		Contents: []*generativelanguage.Content{{
			Role:  "user",
			Parts: []*generativelanguage.Part{{Text: prompt}},
		}},
		GenerationConfig: &generativelanguage.GenerationConfig{
			Temperature:      c.temperature,
			MaxOutputTokens:  c.maxOutputTokens,
			ResponseMimeType: jsonMimeType,
		},
	}

	resp, err := c.svc.Models.GenerateContent(modelResource(model), req).Context(ctx).Do()
	if err != nil {
		return "", classify(model, err)
	}

	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil {
				b.WriteString(part.Text)
			}
		}
		break
	}
	if b.Len() == 0 {
		reason := "no candidates"
		if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
			reason = "finish reason " + resp.Candidates[0].FinishReason
		}
		return "", fmt.Errorf("gemini %s returned an empty response (%s)", model, reason)
	}
	return b.String(), nil
}

func modelResource(model string) string {
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}

// classify maps throttling and quota errors to RateLimitError.
func classify(model string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return &domain.RateLimitError{Model: model, Err: err}
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "resource_exhausted") {
		return &domain.RateLimitError{Model: model, Err: err}
	}
	return fmt.Errorf("gemini %s: %w", model, err)
}
