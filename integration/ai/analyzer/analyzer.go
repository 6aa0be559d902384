package analyzer

import (
	"context"
	"fmt"
	"time"
)

const systemPrompt = "You are an analyst at a venture fund. Answer concisely in plain text without markdown."

// Client analyses documents with a hosted language model.
type Client interface {
	Analyze(ctx context.Context, prompt string) (string, error)
}

// New builds the client for cfg.Provider.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		c, err := NewOpenAI(cfg.OpenAIAPIKey,
			WithOpenAIModel(cfg.OpenAIModel),
			WithOpenAIMaxTokens(cfg.MaxTokens),
			WithOpenAITimeout(cfg.Timeout))
		if err != nil {
			return nil, err
		}
		return c, nil
	case ProviderGoogle:
		c, err := NewGoogle(ctx, cfg.GoogleAPIKey,
			WithGoogleModel(cfg.GoogleModel),
			WithGoogleMaxTokens(cfg.MaxTokens),
			WithGoogleTimeout(cfg.Timeout))
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
