package telegram

import "strings"

// EscapeText encodes message text for use as a query parameter.
// The percent sign must be replaced first so the other escapes survive.
func EscapeText(text string) string {
	text = strings.ReplaceAll(text, "%", "%25")
	text = strings.ReplaceAll(text, "\n", "%0A")
	text = strings.ReplaceAll(text, " ", "%20")
	text = strings.ReplaceAll(text, "\"", "%22")
	text = strings.ReplaceAll(text, "&", "%26")

	return text
}
