package jobs

import "time"

// Config tunes the processors. Costs simulate the processing time of each
// document kind; a zero cost completes immediately.
type Config struct {
	NotificationConcurrency int `env:"JOBS_NOTIFICATION_CONCURRENCY" envDefault:"5"`
	ReportConcurrency       int `env:"JOBS_REPORT_CONCURRENCY" envDefault:"1"`
	DocumentConcurrency     int `env:"JOBS_DOCUMENT_CONCURRENCY" envDefault:"2"`

	ReportTimeout    time.Duration `env:"JOBS_REPORT_TIMEOUT" envDefault:"5m"`
	ReportStageDelay time.Duration `env:"JOBS_REPORT_STAGE_DELAY" envDefault:"0s"`

	OCRCost        time.Duration `env:"JOBS_OCR_COST" envDefault:"3s"`
	AnalysisCost   time.Duration `env:"JOBS_ANALYSIS_COST" envDefault:"5s"`
	ConversionCost time.Duration `env:"JOBS_CONVERSION_COST" envDefault:"2s"`
}

// DefaultConfig mirrors the env defaults.
func DefaultConfig() Config {
	return Config{
		NotificationConcurrency: 5,
		ReportConcurrency:       1,
		DocumentConcurrency:     2,
		ReportTimeout:           5 * time.Minute,
		OCRCost:                 3 * time.Second,
		AnalysisCost:            5 * time.Second,
		ConversionCost:          2 * time.Second,
	}
}
