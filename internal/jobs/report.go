package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dmitrymomot/dealqueue/core/logger"
	"github.com/dmitrymomot/dealqueue/core/queue"
	"github.com/dmitrymomot/dealqueue/core/records"
	"github.com/dmitrymomot/dealqueue/core/storage"
)

// ReportProcessor generates reports in five stages: validate, gather, analyse,
// render and store. It enforces its own timeout on top of the job timeout.
type ReportProcessor struct {
	store      records.Store
	storage    storage.Storage
	logger     *slog.Logger
	timeout    time.Duration
	stageDelay time.Duration
}

// ReportOption configures a ReportProcessor.
type ReportOption func(*ReportProcessor)

// WithReportTimeout bounds a whole report execution.
func WithReportTimeout(d time.Duration) ReportOption {
	return func(p *ReportProcessor) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithReportStageDelay adds a simulated cost to every stage.
func WithReportStageDelay(d time.Duration) ReportOption {
	return func(p *ReportProcessor) {
		if d >= 0 {
			p.stageDelay = d
		}
	}
}

// WithReportLogger sets the logger.
func WithReportLogger(log *slog.Logger) ReportOption {
	return func(p *ReportProcessor) {
		if log != nil {
			p.logger = log
		}
	}
}

// NewReportProcessor creates the processor.
func NewReportProcessor(store records.Store, artifacts storage.Storage, opts ...ReportOption) *ReportProcessor {
	p := &ReportProcessor{
		store:   store,
		storage: artifacts,
		logger:  logger.Discard(),
		timeout: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handler returns the queue handler.
func (p *ReportProcessor) Handler() queue.HandlerFunc {
	return queue.Typed(p.Handle)
}

// Handle processes one report job. When the failure is terminal the
// requesting user gets a best-effort failure notification.
func (p *ReportProcessor) Handle(ctx context.Context, job *queue.Job, payload ReportPayload) (err error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	defer func() {
		if err == nil {
			return
		}
		err = p.classify(ctx, err)
		if job.FinalAttempt() || queue.IsPermanent(err) {
			p.notifyFailure(job, payload, err)
		}
	}()

	if err := payload.Validate(); err != nil {
		return queue.Permanent(err)
	}
	format := payload.format()
	job.ReportProgress(10)

	var (
		user User
		data reportData
		art  artifact
		url  string
		key  string
	)

	if err := p.stage(ctx, job, "gather", 30, func(ctx context.Context) error {
		var err error
		user, data, err = p.gather(ctx, payload)
		return err
	}); err != nil {
		return err
	}

	if err := p.stage(ctx, job, "analyse", 50, func(context.Context) error {
		analyse(&data, payload)
		return nil
	}); err != nil {
		return err
	}

	if err := p.stage(ctx, job, "render", 70, func(context.Context) error {
		var err error
		art, err = render(format, data)
		return err
	}); err != nil {
		return err
	}

	if err := p.stage(ctx, job, "store", 90, func(ctx context.Context) error {
		key = fmt.Sprintf("reports/%d/%s-%s.%s", user.ID, payload.ReportType, jobKey(job), art.Ext)
		var err error
		url, err = p.storage.Put(ctx, key, art.ContentType, bytes.NewReader(art.Data))
		return err
	}); err != nil {
		return err
	}

	reportID, err := p.store.Create(ctx, records.Reports, Report{
		ReportType:  payload.ReportType,
		Format:      format,
		UserID:      user.ID,
		Key:         key,
		URL:         url,
		Size:        len(art.Data),
		JobID:       job.ID,
		GeneratedAt: data.GeneratedAt,
	})
	if err != nil {
		return fmt.Errorf("create report record: %w", err)
	}

	if err := notify(ctx, p.store, Notification{
		UserID:   user.ID,
		Title:    "Your report is ready",
		Content:  fmt.Sprintf("%s is ready to download.", data.Title),
		Category: string(CategoryReport),
		Metadata: map[string]any{"reportId": reportID, "url": url, "format": format},
	}); err != nil {
		return err
	}

	p.logger.InfoContext(ctx, "report generated",
		logger.JobID(job.ID),
		logger.Type(string(payload.ReportType)),
		slog.String("format", string(format)),
		logger.Count("bytes", len(art.Data)))
	return nil
}

// stage runs fn, waits the simulated stage cost and reports progress.
func (p *ReportProcessor) stage(ctx context.Context, job *queue.Job, name string, progress int, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		return fmt.Errorf("%s stage: %w", name, err)
	}
	if err := sleep(ctx, p.stageDelay); err != nil {
		return fmt.Errorf("%s stage: %w", name, err)
	}
	job.ReportProgress(progress)
	p.logger.DebugContext(ctx, "report stage finished",
		logger.Queue(job.Queue.String()),
		logger.JobID(job.ID),
		slog.String("stage", name),
		logger.Progress(progress))
	return nil
}

func (p *ReportProcessor) gather(ctx context.Context, payload ReportPayload) (User, reportData, error) {
	params := payload.Parameters

	var user User
	if err := p.store.Get(ctx, records.Users, params.UserID, &user); err != nil {
		return User{}, reportData{}, fmt.Errorf("load user %d: %w", params.UserID, err)
	}
	if user.ID == 0 {
		user.ID = params.UserID
	}

	data := reportData{
		Title:       reportTitle(payload.ReportType),
		GeneratedAt: time.Now().UTC(),
		Columns:     []string{"Metric", "Value"},
	}
	if user.Name != "" {
		data.Subtitle = "Prepared for " + user.Name
	}

	if params.DealID > 0 {
		var deal Deal
		if err := p.store.Get(ctx, records.Deals, params.DealID, &deal); err != nil {
			return User{}, reportData{}, fmt.Errorf("load deal %d: %w", params.DealID, err)
		}
		data.Rows = append(data.Rows,
			[]string{"Deal", deal.Name},
			[]string{"Stage", deal.Stage},
			[]string{"Amount", money(deal.Amount, deal.Currency)},
		)
	}

	if params.FundID > 0 {
		var fund Fund
		if err := p.store.Get(ctx, records.Funds, params.FundID, &fund); err != nil {
			return User{}, reportData{}, fmt.Errorf("load fund %d: %w", params.FundID, err)
		}
		data.Rows = append(data.Rows,
			[]string{"Fund", fund.Name},
			[]string{"Fund size", money(fund.Size, fund.Currency)},
			[]string{"Committed", money(fund.Committed, fund.Currency)},
			[]string{"Remaining", money(fund.Size-fund.Committed, fund.Currency)},
			[]string{"Utilization", percent(fund.Committed, fund.Size)},
		)
	}

	return user, data, nil
}

func analyse(data *reportData, payload ReportPayload) {
	if r := payload.Parameters.DateRange; r != nil {
		data.Rows = append(data.Rows, []string{"Period", r.From.Format(time.DateOnly) + " to " + r.To.Format(time.DateOnly)})
	}
	data.Rows = append(data.Rows,
		[]string{"Report type", string(payload.ReportType)},
		[]string{"Data points", strconv.Itoa(len(data.Rows))},
	)
}

// classify marks failures caused by the report deadline as timeouts.
func (p *ReportProcessor) classify(ctx context.Context, err error) error {
	if errors.Is(err, queue.ErrJobTimeout) || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: report exceeded %s: %w", queue.ErrJobTimeout, p.timeout, err)
}

func (p *ReportProcessor) notifyFailure(job *queue.Job, payload ReportPayload, cause error) {
	if payload.Parameters.UserID <= 0 {
		return
	}

	// The job context may already be expired.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := notify(ctx, p.store, Notification{
		UserID:   payload.Parameters.UserID,
		Title:    "Report generation failed",
		Content:  fmt.Sprintf("%s could not be generated. Please try again later.", reportTitle(payload.ReportType)),
		Category: string(CategoryReport),
		Metadata: map[string]any{"jobId": job.ID, "reportType": payload.ReportType},
	})
	if err != nil {
		p.logger.Warn("failed to notify user about report failure",
			logger.JobID(job.ID),
			logger.ID("user_id", payload.Parameters.UserID),
			logger.Error(err))
	}
	p.logger.Error("report generation failed",
		logger.Queue(job.Queue.String()),
		logger.JobID(job.ID),
		logger.Type(string(payload.ReportType)),
		logger.Attempt(job.AttemptsMade(), job.Options.Attempts),
		logger.Error(cause))
}

func reportTitle(t ReportType) string {
	switch t {
	case ReportDealSummary:
		return "Deal summary"
	case ReportPortfolioPerformance:
		return "Portfolio performance"
	case ReportFundOverview:
		return "Fund overview"
	case ReportInvestmentMetrics:
		return "Investment metrics"
	default:
		return "Report"
	}
}

func jobKey(job *queue.Job) string {
	if job.ID != "" {
		return job.ID
	}
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}

func money(v float64, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	return strconv.FormatFloat(v, 'f', 2, 64) + " " + currency
}

func percent(part, whole float64) string {
	if whole == 0 {
		return "n/a"
	}
	return strconv.FormatFloat(part/whole*100, 'f', 1, 64) + "%"
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
