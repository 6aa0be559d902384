package analyzer

import "time"

// Supported providers.
const (
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"
)

// Config selects and configures the language model used for document analysis.
type Config struct {
	Provider     string        `env:"ANALYZER_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey string        `env:"OPENAI_API_KEY"`
	OpenAIModel  string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	GoogleAPIKey string        `env:"GOOGLE_API_KEY"`
	GoogleModel  string        `env:"GOOGLE_MODEL" envDefault:"gemini-2.0-flash"`
	MaxTokens    int64         `env:"ANALYZER_MAX_TOKENS" envDefault:"512"`
	Timeout      time.Duration `env:"ANALYZER_TIMEOUT" envDefault:"60s"`
}

// Enabled reports whether the selected provider has an API key.
func (c Config) Enabled() bool {
	switch c.Provider {
	case ProviderOpenAI:
		return c.OpenAIAPIKey != ""
	case ProviderGoogle:
		return c.GoogleAPIKey != ""
	default:
		return false
	}
}
