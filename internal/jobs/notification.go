package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/dealqueue/core/email"
	"github.com/dmitrymomot/dealqueue/core/email/templates"
	"github.com/dmitrymomot/dealqueue/core/email/templates/components"
	"github.com/dmitrymomot/dealqueue/core/logger"
	"github.com/dmitrymomot/dealqueue/core/queue"
	"github.com/dmitrymomot/dealqueue/core/records"
	"github.com/dmitrymomot/dealqueue/pkg/async"
)

// NotificationProcessor fans a notification out over its channels. The in-app
// record is durable and its failure fails the job. Email and push are side
// sends: they run concurrently and their failures are only logged.
type NotificationProcessor struct {
	store  records.Store
	email  email.EmailSender
	push   PushSender
	logger *slog.Logger
}

// NewNotificationProcessor creates the processor. Nil senders disable their channel.
func NewNotificationProcessor(store records.Store, sender email.EmailSender, push PushSender, log *slog.Logger) *NotificationProcessor {
	if log == nil {
		log = logger.Discard()
	}
	return &NotificationProcessor{store: store, email: sender, push: push, logger: log}
}

// Handler returns the queue handler.
func (p *NotificationProcessor) Handler() queue.HandlerFunc {
	return queue.Typed(p.Handle)
}

// Handle processes one notification job.
func (p *NotificationProcessor) Handle(ctx context.Context, job *queue.Job, payload NotificationPayload) error {
	channels := payload.Channels.normalized()
	job.ReportProgress(10)

	var user User
	if channels.Email || channels.Push {
		if err := p.store.Get(ctx, records.Users, payload.UserID, &user); err != nil {
			return fmt.Errorf("load user %d: %w", payload.UserID, err)
		}
	}
	job.ReportProgress(25)

	if channels.InApp {
		id, err := p.store.Create(ctx, records.Notifications, Notification{
			UserID:    payload.UserID,
			Title:     payload.Title,
			Content:   payload.Content,
			Category:  string(payload.Category),
			Metadata:  payload.Metadata,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("create in-app notification: %w", err)
		}
		p.logger.DebugContext(ctx, "in-app notification created",
			logger.JobID(job.ID),
			logger.ID("notification_id", id))
	}
	job.ReportProgress(50)

	var sends []*async.ExecFuture
	var names []string
	if channels.Email && p.email != nil {
		sends = append(sends, async.Exec(ctx, user, func(ctx context.Context, u User) error {
			return p.sendEmail(ctx, u, payload)
		}))
		names = append(names, "email")
	}
	if channels.Push && p.push != nil {
		sends = append(sends, async.Exec(ctx, user, func(ctx context.Context, u User) error {
			return p.sendPush(ctx, u, payload)
		}))
		names = append(names, "push")
	}

	for i, f := range sends {
		if err := f.Await(); err != nil {
			p.logger.WarnContext(ctx, "notification channel failed",
				logger.JobID(job.ID),
				slog.String("channel", names[i]),
				logger.ID("user_id", payload.UserID),
				logger.Error(err))
		}
	}
	job.ReportProgress(100)
	return nil
}

func (p *NotificationProcessor) sendEmail(ctx context.Context, u User, payload NotificationPayload) error {
	if u.Email == "" {
		return ErrNoRecipientAddress
	}
	body, err := templates.Render(ctx, notificationEmail(u, payload))
	if err != nil {
		return fmt.Errorf("render notification email: %w", err)
	}
	params := email.SendEmailParams{
		SendTo:   u.Email,
		Subject:  payload.Title,
		BodyHTML: body,
		Tag:      string(payload.Category),
	}
	if err := params.Validate(); err != nil {
		return err
	}
	return p.email.SendEmail(ctx, params)
}

// notificationEmail lays out a notification. A string "actionUrl" in the
// metadata becomes a button.
func notificationEmail(u User, payload NotificationPayload) templ.Component {
	content := []templ.Component{
		components.Header(payload.Title, categoryLabel(payload.Category)),
	}
	if u.Name != "" {
		content = append(content, templates.Wrap(components.Text(), templates.Text("Hi "+u.Name+",")))
	}
	for _, para := range strings.Split(payload.Content, "\n\n") {
		if para = strings.TrimSpace(para); para != "" {
			content = append(content, templates.Wrap(components.Text(), templates.Text(para)))
		}
	}
	if url, ok := payload.Metadata["actionUrl"].(string); ok && url != "" {
		content = append(content, templates.Wrap(components.ButtonGroup(),
			components.PrimaryButton("View details", url)))
	}
	content = append(content, templates.Wrap(components.TextSecondary(),
		templates.Text("You can also find this notification in your dealqueue inbox.")))
	return templates.Wrap(components.Layout(), content...)
}

func categoryLabel(c NotificationCategory) string {
	s := strings.ReplaceAll(string(c), "_", " ")
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (p *NotificationProcessor) sendPush(ctx context.Context, u User, payload NotificationPayload) error {
	if len(u.PushTokens) == 0 {
		return ErrNoPushTokens
	}
	return p.push.SendPush(ctx, PushMessage{
		Tokens: u.PushTokens,
		Title:  payload.Title,
		Body:   payload.Content,
		Data:   payload.Metadata,
	})
}

// notify creates an in-app notification outside a notification job.
func notify(ctx context.Context, store records.Store, n Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if _, err := store.Create(ctx, records.Notifications, n); err != nil {
		return fmt.Errorf("create notification for user %d: %w", n.UserID, err)
	}
	return nil
}
