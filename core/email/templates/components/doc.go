// Package components provides the templ building blocks for HTML emails:
// Layout as the document shell, Header and the Text variants for content, and
// ButtonGroup with PrimaryButton or DangerButton for calls to action.
//
// Container components render their children from the context, so they
// compose with templates.Wrap or from .templ files:
//
//	@components.Layout() {
//		@components.Header("Report failed", "")
//		@components.TextWarning() {
//			The deal summary could not be generated.
//		}
//	}
//
// All styling is inline, and all text and URLs are escaped.
package components
