// Package analyzer summarises deal documents with a hosted language model.
//
// Two providers are supported: OpenAI chat completions and Google Gemini.
// New picks one from Config, which is loaded from the environment:
//
//	var cfg analyzer.Config
//	config.MustLoad(&cfg)
//
//	if cfg.Enabled() {
//		client, err := analyzer.New(ctx, cfg)
//		if err != nil {
//			return err
//		}
//		summary, err := client.Analyze(ctx, "Summarise the term sheet ...")
//	}
//
// Clients do not retry. A failed request returns an error wrapping
// ErrRequestFailed and the job queue decides whether to try again.
package analyzer
