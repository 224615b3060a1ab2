// Package ui holds the feedback helpers that mutate presentation state of a
// supplied element. They keep no state of their own.
package ui

const (
	ClassSuccess = "success"
	ClassError   = "error"
	ClassInfo    = "info"

	LoadingText          = "Processing..."
	OriginalTextAttr     = "data-original-text"
	disabledOpacity      = "0.5"
	enabledOpacity       = "1"
	displayStyleProperty = "display"
	opacityStyleProperty = "opacity"
)

// Element is the subset of a DOM element the helpers touch.
type Element interface {
	SetText(text string)
	Text() string
	SetClass(class string)
	SetStyle(property, value string)
	SetDisabled(disabled bool)
	SetAttribute(name, value string)
	Attribute(name string) string
}

// ShowMessage sets the message text and class and makes it visible.
func ShowMessage(el Element, message, kind string) {
	el.SetText(message)
	el.SetClass("message " + kind)
	el.SetStyle(displayStyleProperty, "block")
}

// HideMessage hides the message without clearing it.
func HideMessage(el Element) {
	el.SetStyle(displayStyleProperty, "none")
}

func EnableButton(button Element) {
	button.SetDisabled(false)
	button.SetStyle(opacityStyleProperty, enabledOpacity)
}

func DisableButton(button Element) {
	button.SetDisabled(true)
	button.SetStyle(opacityStyleProperty, disabledOpacity)
}

// ShowLoading stashes originalText on the button and shows the loading
// label.
func ShowLoading(button Element, originalText string) {
	button.SetAttribute(OriginalTextAttr, originalText)
	button.SetText(LoadingText)
	button.SetDisabled(true)
}

// HideLoading restores the stashed label, if any, and re-enables the button.
func HideLoading(button Element) {
	if original := button.Attribute(OriginalTextAttr); original != "" {
		button.SetText(original)
	}
	button.SetDisabled(false)
}
