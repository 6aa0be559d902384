package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Google analyses documents with the Gemini API.
type Google struct {
	client    *genai.Client
	model     string
	maxTokens int32
	timeout   time.Duration
	baseURL   string
	http      *http.Client
}

// GoogleOption is a functional option for configuring Google.
type GoogleOption func(*Google)

// WithGoogleModel sets the Gemini model.
func WithGoogleModel(model string) GoogleOption {
	return func(g *Google) {
		if model != "" {
			g.model = model
		}
	}
}

// WithGoogleMaxTokens caps the response length.
func WithGoogleMaxTokens(n int64) GoogleOption {
	return func(g *Google) {
		if n > 0 {
			g.maxTokens = int32(n)
		}
	}
}

// WithGoogleTimeout bounds each request.
func WithGoogleTimeout(d time.Duration) GoogleOption {
	return func(g *Google) {
		g.timeout = d
	}
}

// WithGoogleBaseURL overrides the API endpoint.
func WithGoogleBaseURL(url string) GoogleOption {
	return func(g *Google) {
		g.baseURL = url
	}
}

// WithGoogleHTTPClient sets a custom HTTP client.
func WithGoogleHTTPClient(client *http.Client) GoogleOption {
	return func(g *Google) {
		g.http = client
	}
}

// NewGoogle creates a Gemini analyzer with API key authentication.
func NewGoogle(ctx context.Context, apiKey string, opts ...GoogleOption) (*Google, error) {
	if apiKey == "" {
		return nil, ErrInvalidAPIKey
	}

	g := &Google{
		model:     "gemini-2.0-flash",
		maxTokens: 512,
	}
	for _, opt := range opts {
		opt(g)
	}

	config := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.http,
	}
	if g.baseURL != "" {
		config.HTTPOptions = genai.HTTPOptions{BaseURL: g.baseURL}
	}

	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google AI client: %w", err)
	}
	g.client = client
	return g, nil
}

// Analyze sends prompt and returns the generated text.
func (g *Google) Analyze(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		MaxOutputTokens:   g.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: google: %w", ErrRequestFailed, err)
	}

	text := resp.Text()
	if text == "" {
		return "", ErrNoResponse
	}
	return text, nil
}
