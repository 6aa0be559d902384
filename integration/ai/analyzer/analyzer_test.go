package analyzer_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dealqueue/integration/ai/analyzer"
)

func TestConfig_Enabled(t *testing.T) {
	t.Parallel()

	assert.False(t, analyzer.Config{Provider: analyzer.ProviderOpenAI}.Enabled())
	assert.True(t, analyzer.Config{Provider: analyzer.ProviderOpenAI, OpenAIAPIKey: "k"}.Enabled())
	assert.False(t, analyzer.Config{Provider: analyzer.ProviderGoogle, OpenAIAPIKey: "k"}.Enabled())
	assert.True(t, analyzer.Config{Provider: analyzer.ProviderGoogle, GoogleAPIKey: "k"}.Enabled())
	assert.False(t, analyzer.Config{Provider: "anthropic", OpenAIAPIKey: "k"}.Enabled())
}

func TestNew(t *testing.T) {
	t.Parallel()

	_, err := analyzer.New(context.Background(), analyzer.Config{Provider: "anthropic"})
	assert.ErrorIs(t, err, analyzer.ErrUnsupportedProvider)

	_, err = analyzer.New(context.Background(), analyzer.Config{Provider: analyzer.ProviderOpenAI})
	assert.ErrorIs(t, err, analyzer.ErrInvalidAPIKey)

	_, err = analyzer.NewGoogle(context.Background(), "")
	assert.ErrorIs(t, err, analyzer.ErrInvalidAPIKey)

	c, err := analyzer.New(context.Background(), analyzer.Config{Provider: analyzer.ProviderOpenAI, OpenAIAPIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &analyzer.OpenAI{}, c)
}

func TestOpenAI_Analyze(t *testing.T) {
	t.Parallel()

	t.Run("returns the first choice", func(t *testing.T) {
		t.Parallel()

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
				"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Solid unit economics."}}]}`))
		}))
		defer srv.Close()

		c, err := analyzer.NewOpenAI("test-key",
			analyzer.WithOpenAIModel("gpt-4o-mini"),
			analyzer.WithOpenAIBaseURL(srv.URL+"/"))
		require.NoError(t, err)

		got, err := c.Analyze(context.Background(), "Summarise the pitch deck")
		require.NoError(t, err)
		assert.Equal(t, "Solid unit economics.", got)

		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Equal(t, "Summarise the pitch deck", req.Messages[1].Content)
	})

	t.Run("api error is a request failure", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
		}))
		defer srv.Close()

		c, err := analyzer.NewOpenAI("test-key", analyzer.WithOpenAIBaseURL(srv.URL+"/"))
		require.NoError(t, err)

		_, err = c.Analyze(context.Background(), "Summarise")
		assert.ErrorIs(t, err, analyzer.ErrRequestFailed)
		assert.Contains(t, err.Error(), "429")
	})

	t.Run("empty prompt", func(t *testing.T) {
		t.Parallel()

		c, err := analyzer.NewOpenAI("test-key")
		require.NoError(t, err)
		_, err = c.Analyze(context.Background(), "  ")
		assert.ErrorIs(t, err, analyzer.ErrEmptyPrompt)
	})
}

func TestGoogle_Analyze(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-2.0-flash:generateContent")
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Runway of 18 months."}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	c, err := analyzer.NewGoogle(context.Background(), "test-key",
		analyzer.WithGoogleBaseURL(srv.URL+"/"),
		analyzer.WithGoogleHTTPClient(srv.Client()))
	require.NoError(t, err)

	got, err := c.Analyze(context.Background(), "Summarise the financials")
	require.NoError(t, err)
	assert.Equal(t, "Runway of 18 months.", got)
}
