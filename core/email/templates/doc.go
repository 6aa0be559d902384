// Package templates renders email bodies from templ components.
//
// Bodies are composed from the components package and rendered to a string:
//
//	body := templates.Wrap(components.Layout(),
//		components.Header("Your report is ready", "Deal summary"),
//		templates.Wrap(components.Text(), templates.Text("The report has been generated.")),
//		templates.Wrap(components.ButtonGroup(),
//			components.PrimaryButton("Download", reportURL)),
//	)
//
//	html, err := templates.Render(ctx, body)
//
// Components written in .templ files work the same way; Wrap is only needed
// when composing from Go code without code generation.
package templates
