// Package model talks to the hosted multimodal model that reads the uploaded image.
package model

import (
	"context"
	"errors"
	"time"
)

var (
	ErrMissingAPIKey = errors.New("api key is not configured")
	ErrModelCall     = errors.New("model call failed")
	ErrEmptyResponse = errors.New("model returned no text")
)

const (
	DefaultModelName = "gemini-2.0-flash"
	DefaultEndpoint  = "https://generativelanguage.googleapis.com/"
)

// Analyzer sends one image together with an instruction text and returns the model's markdown reply
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string, prompt string) (string, error)
}

type Config struct {
	Name string
	// base URL of the Gemini API; the API version is appended by the client
	Endpoint string
	// zero disables the client side timeout
	Timeout time.Duration
}

// NewAnalyzer builds the Gemini backed analyzer; without a key no analyzer exists
func NewAnalyzer(apiKey string, cfg Config) (Analyzer, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := NewGeminiClient(apiKey, cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}
