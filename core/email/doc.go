// Package email defines the email delivery channel used by job processors.
//
// The EmailSender interface is implemented by the Postmark integration for
// production and by DevSender for local development, which writes every email
// to disk as an HTML body plus JSON metadata:
//
//	sender := email.NewDevSender("./dev_emails")
//
//	err := sender.SendEmail(ctx, email.SendEmailParams{
//		SendTo:   "investor@example.com",
//		Subject:  "Your report is ready",
//		BodyHTML: "<p>The deal summary report has been generated.</p>",
//		Tag:      "report_ready",
//	})
//
// Invalid parameters return an error wrapping ErrInvalidParams; delivery
// failures wrap ErrFailedToSendEmail.
package email
