package components

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

const (
	fontFamily = "Arial, sans-serif"
	colorText  = "#1f2937"
	colorMuted = "#6b7280"
)

// Layout is the base HTML document. Its children become the email content.
func Layout() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"></head>`+
			`<body style="margin:0;padding:0;background-color:#f3f4f6;font-family:`+fontFamily+`;">`+
			`<table role="presentation" width="100%" cellpadding="0" cellspacing="0"><tr><td align="center" style="padding:24px 12px;">`+
			`<table role="presentation" width="600" cellpadding="0" cellspacing="0" style="max-width:600px;background-color:#ffffff;"><tr><td style="padding:32px;">`); err != nil {
			return err
		}
		if err := children(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</td></tr></table></td></tr></table></body></html>`)
		return err
	})
}

// Header renders the title and an optional subtitle.
func Header(title, subtitle string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		html := `<h1 style="margin:0 0 8px;font-size:24px;line-height:32px;color:` + colorText + `;">` + templ.EscapeString(title) + `</h1>`
		if subtitle != "" {
			html += `<p style="margin:0 0 24px;font-size:16px;line-height:24px;color:` + colorMuted + `;">` + templ.EscapeString(subtitle) + `</p>`
		}
		_, err := io.WriteString(w, html)
		return err
	})
}

// Text wraps its children in a body paragraph.
func Text() templ.Component {
	return paragraph(`margin:0 0 16px;font-size:16px;line-height:24px;color:` + colorText + `;`)
}

// TextSecondary wraps its children in a muted paragraph.
func TextSecondary() templ.Component {
	return paragraph(`margin:0 0 16px;font-size:14px;line-height:20px;color:` + colorMuted + `;`)
}

// TextWarning wraps its children in a highlighted paragraph.
func TextWarning() templ.Component {
	return paragraph(`margin:0 0 16px;padding:12px;font-size:16px;line-height:24px;color:#92400e;background-color:#fef3c7;`)
}

// ButtonGroup lays out button children.
func ButtonGroup() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<table role="presentation" cellpadding="0" cellspacing="0" style="margin:8px 0 24px;"><tr>`); err != nil {
			return err
		}
		if err := children(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</tr></table>`)
		return err
	})
}

// PrimaryButton is a blue call-to-action link.
func PrimaryButton(text, url string) templ.Component {
	return button(text, url, "#2563eb")
}

// DangerButton is a red call-to-action link.
func DangerButton(text, url string) templ.Component {
	return button(text, url, "#dc2626")
}

func button(text, url, color string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<td style="padding-right:8px;"><a href="`+templ.EscapeString(string(templ.URL(url)))+
			`" style="display:inline-block;padding:12px 24px;font-size:16px;color:#ffffff;text-decoration:none;background-color:`+color+`;">`+
			templ.EscapeString(text)+`</a></td>`)
		return err
	})
}

func paragraph(style string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<p style="`+style+`">`); err != nil {
			return err
		}
		if err := children(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</p>`)
		return err
	})
}

func children(ctx context.Context, w io.Writer) error {
	return templ.GetChildren(ctx).Render(ctx, w)
}
