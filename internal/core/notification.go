package core

import (
	"github.com/HH-Alex-Ma/xarl-email-agent/internal/jsonvalue"
)

// RecipientField is the key inside a structured notification that names
// the message target
const RecipientField = "recipient_email"

// ComposeNotification extracts data.outputs.notification and
// data.outputs.result from a workflow response. A structured notification
// contributes its recipient as both target and text; without a recipient
// its JSON form is used as text and the target stays empty. Content is
// empty when there is nothing to say.
func ComposeNotification(resp jsonvalue.Value) Notification {
	outputs := resp.Path("data", "outputs")

	var n Notification
	notification := outputs.Get("notification")
	text := notification.Text()
	if notification.IsObject() {
		if recipient := notification.Get(RecipientField).Text(); recipient != "" {
			n.Target = recipient
			text = recipient
		}
	}

	result := outputs.Get("result")
	resultText := result.Text()
	if result.IsObject() {
		resultText = result.Pretty()
	}

	if text == "" && resultText == "" {
		return n
	}
	n.Content = text + "\n\n" + resultText
	return n
}
