package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/dealqueue/core/logger"
	"github.com/dmitrymomot/dealqueue/core/queue"
	"github.com/dmitrymomot/dealqueue/core/records"
)

// Analyzer answers a free-form prompt, typically with a language model.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string) (string, error)
}

// DocumentProcessor runs OCR, analysis or conversion on a deal document and
// appends the result to the deal's timeline.
type DocumentProcessor struct {
	store    records.Store
	logger   *slog.Logger
	costs    map[DocumentType]time.Duration
	analyzer Analyzer
}

// DocumentOption configures a DocumentProcessor.
type DocumentOption func(*DocumentProcessor)

// WithAnalyzer makes analysis jobs summarise the document with a. Without an
// analyzer, analysis takes its simulated cost.
func WithAnalyzer(a Analyzer) DocumentOption {
	return func(p *DocumentProcessor) {
		p.analyzer = a
	}
}

// NewDocumentProcessor creates the processor. Costs are the simulated
// processing time per document type.
func NewDocumentProcessor(store records.Store, costs map[DocumentType]time.Duration, log *slog.Logger, opts ...DocumentOption) *DocumentProcessor {
	if log == nil {
		log = logger.Discard()
	}
	c := make(map[DocumentType]time.Duration, len(costs))
	for k, v := range costs {
		c[k] = v
	}
	p := &DocumentProcessor{store: store, logger: log, costs: c}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handler returns the queue handler.
func (p *DocumentProcessor) Handler() queue.HandlerFunc {
	return queue.Typed(p.Handle)
}

// Handle processes one document job.
func (p *DocumentProcessor) Handle(ctx context.Context, job *queue.Job, payload DocumentPayload) error {
	if err := payload.Validate(); err != nil {
		return queue.Permanent(err)
	}
	job.ReportProgress(10)

	var doc Document
	if err := p.store.Get(ctx, records.Documents, payload.DocumentID, &doc); err != nil {
		return fmt.Errorf("load document %d: %w", payload.DocumentID, err)
	}
	job.ReportProgress(25)

	result := processResult(payload, doc)
	if payload.Type == DocumentAnalysis && p.analyzer != nil {
		summary, err := p.analyzer.Analyze(ctx, analysisPrompt(payload, doc))
		if err != nil {
			return fmt.Errorf("analysis of document %d: %w", payload.DocumentID, err)
		}
		result["summary"] = strings.TrimSpace(summary)
	} else if err := sleep(ctx, p.costs[payload.Type]); err != nil {
		return fmt.Errorf("%s of document %d: %w", payload.Type, payload.DocumentID, err)
	}
	job.ReportProgress(75)

	if _, err := p.store.Create(ctx, records.Timeline, TimelineEntry{
		EntityType:     "deal",
		EntityID:       doc.DealID,
		DocumentID:     payload.DocumentID,
		ProcessingType: payload.Type,
		Result:         result,
		CreatedAt:      time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("append timeline entry: %w", err)
	}

	p.logger.InfoContext(ctx, "document processed",
		logger.JobID(job.ID),
		logger.ID("document_id", payload.DocumentID),
		logger.Type(string(payload.Type)))
	job.ReportProgress(100)
	return nil
}

func processResult(payload DocumentPayload, doc Document) map[string]any {
	opts := payload.Options
	result := map[string]any{"status": "processed"}

	switch payload.Type {
	case DocumentOCR:
		result["pages"] = 1
		result["textExtracted"] = true
	case DocumentAnalysis:
		result["extractedText"] = opts.ExtractText
		result["extractedTables"] = opts.ExtractTables
		result["keyTerms"] = []string{}
	case DocumentConversion:
		result["sourceFormat"] = doc.ContentType
		result["targetFormat"] = opts.TargetFormat
	}
	if opts.ExtractMetadata {
		result["metadata"] = map[string]any{"name": doc.Name, "contentType": doc.ContentType}
	}
	return result
}

func analysisPrompt(payload DocumentPayload, doc Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarise the deal document %q (%s) for an investment committee in at most five sentences.", doc.Name, doc.ContentType)
	if payload.Options.ExtractTables {
		b.WriteString(" Mention any financial tables and their key figures.")
	}
	if payload.Options.ExtractMetadata {
		b.WriteString(" List the parties and dates the document refers to.")
	}
	return b.String()
}
