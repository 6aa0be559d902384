// Package postmark implements email.EmailSender with Postmark's transactional API.
//
// Configuration is loaded from the environment:
//
//	type Config struct {
//		PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
//		PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
//		SenderEmail          string `env:"SENDER_EMAIL"`
//		SupportEmail         string `env:"SUPPORT_EMAIL"`
//	}
//
// Config.Enabled reports whether both tokens are present; the worker falls
// back to email.DevSender when they are not.
//
//	var cfg postmark.Config
//	config.MustLoad(&cfg)
//
//	sender, err := postmark.New(cfg)
//	if err != nil {
//		return err
//	}
//
// Opens and HTML link clicks are tracked. Reply-To is set to the support address.
package postmark
