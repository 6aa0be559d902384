package templates

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Render renders a templ component to an HTML string suitable for an email body.
func Render(ctx context.Context, component templ.Component) (string, error) {
	var b strings.Builder
	if err := component.Render(ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Wrap renders parent with children as its { children... } content, the way a
// generated templ call block does.
func Wrap(parent templ.Component, children ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			for _, c := range children {
				if err := c.Render(ctx, w); err != nil {
					return err
				}
			}
			return nil
		})
		return parent.Render(templ.WithChildren(ctx, body), w)
	})
}

// Text is escaped plain text, the Go counterpart of { value } in a .templ file.
func Text(s string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, templ.EscapeString(s))
		return err
	})
}
