package model

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const (
	maxErrorBodyExcerpt = 512
	geminiAPIVersion    = "v1beta"
)

type GeminiClient struct {
	client   *genai.Client
	model    string
	endpoint string
}

// NewGeminiClient configures a Gemini API client for one model. Endpoint overrides
// the service base URL; the SDK is given no retry policy.
func NewGeminiClient(apiKey string, cfg Config) (*GeminiClient, error) {
	if cfg.Name == "" {
		cfg.Name = DefaultModelName
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.Endpoint,
			APIVersion: geminiAPIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:   client,
		model:    cfg.Name,
		endpoint: cfg.Endpoint,
	}, nil
}

// Analyze performs exactly one generateContent call; failures are returned, never retried
func (g *GeminiClient) Analyze(ctx context.Context, image []byte, mimeType string, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(image, mimeType),
		}, genai.RoleUser),
	}

	slog.Debug("GeminiClient: sending request", "model", g.model, "imageBytes", len(image))
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrModelCall, excerpt(err.Error()))
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: blocked: %s", ErrEmptyResponse, resp.PromptFeedback.BlockReason)
		}
		return "", ErrEmptyResponse
	}

	candidate := resp.Candidates[0]
	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", ErrEmptyResponse
	}

	slog.Debug("GeminiClient: received response",
		"finishReason", candidate.FinishReason, "chars", text.Len())
	return text.String(), nil
}

func excerpt(message string) string {
	text := strings.TrimSpace(message)
	if len(text) > maxErrorBodyExcerpt {
		return text[:maxErrorBodyExcerpt] + "..."
	}
	return text
}
