package analyzer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI analyses documents with the OpenAI chat completions API.
type OpenAI struct {
	client    openai.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	reqOpts   []option.RequestOption
}

// OpenAIOption is a functional option for configuring OpenAI.
type OpenAIOption func(*OpenAI)

// WithOpenAIModel sets the chat model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(o *OpenAI) {
		if model != "" {
			o.model = model
		}
	}
}

// WithOpenAIMaxTokens caps the completion length.
func WithOpenAIMaxTokens(n int64) OpenAIOption {
	return func(o *OpenAI) {
		if n > 0 {
			o.maxTokens = n
		}
	}
}

// WithOpenAITimeout bounds each request.
func WithOpenAITimeout(d time.Duration) OpenAIOption {
	return func(o *OpenAI) {
		o.timeout = d
	}
}

// WithOpenAIBaseURL points the client at a compatible endpoint.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(o *OpenAI) {
		o.reqOpts = append(o.reqOpts, option.WithBaseURL(url))
	}
}

// WithOpenAIHTTPClient sets a custom HTTP client.
func WithOpenAIHTTPClient(client *http.Client) OpenAIOption {
	return func(o *OpenAI) {
		if client != nil {
			o.reqOpts = append(o.reqOpts, option.WithHTTPClient(client))
		}
	}
}

// NewOpenAI creates an OpenAI analyzer. Retries are left to the job queue.
func NewOpenAI(apiKey string, opts ...OpenAIOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, ErrInvalidAPIKey
	}

	o := &OpenAI{
		model:     "gpt-4o-mini",
		maxTokens: 512,
	}
	for _, opt := range opts {
		opt(o)
	}

	reqOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, o.reqOpts...)
	o.client = openai.NewClient(reqOpts...)
	return o, nil
}

// Analyze sends prompt as a user message and returns the reply.
func (o *OpenAI) Analyze(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	ctx, cancel := withTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(o.maxTokens),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: openai status %d: %w", ErrRequestFailed, apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("%w: openai: %w", ErrRequestFailed, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrNoResponse
	}
	return resp.Choices[0].Message.Content, nil
}
