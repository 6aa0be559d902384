package jobs

import "time"

// Record shapes read and written through records.Store.

// User is the recipient of notifications and reports.
type User struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	PushTokens []string `json:"pushTokens,omitempty"`
}

// Deal is an investment opportunity tracked by a fund.
type Deal struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	FundID   int64   `json:"fundId"`
	Stage    string  `json:"stage"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Fund is a pool of capital with deals.
type Fund struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Size      float64 `json:"size"`
	Committed float64 `json:"committed"`
	Currency  string  `json:"currency"`
}

// Document is an uploaded file attached to a deal.
type Document struct {
	ID          int64  `json:"id"`
	DealID      int64  `json:"dealId"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
}

// Notification is the durable in-app notification record.
type Notification struct {
	UserID    int64          `json:"userId"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Category  string         `json:"category"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"createdAt"`
}

// TimelineEntry records an event on an entity's timeline.
type TimelineEntry struct {
	EntityType     string         `json:"entityType"`
	EntityID       int64          `json:"entityId"`
	DocumentID     int64          `json:"documentId"`
	ProcessingType DocumentType   `json:"processingType"`
	Result         map[string]any `json:"result"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Report is the record of a generated report artifact.
type Report struct {
	ReportType  ReportType   `json:"reportType"`
	Format      ReportFormat `json:"format"`
	UserID      int64        `json:"userId"`
	Key         string       `json:"key"`
	URL         string       `json:"url"`
	Size        int          `json:"size"`
	JobID       string       `json:"jobId"`
	GeneratedAt time.Time    `json:"generatedAt"`
}
