package contact

import (
	"fmt"
	"strings"
	"time"

	"github.com/Zachkp/portfolio/internal/mailer"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// headerLine folds CR and LF out of values that end up in mail headers.
var headerLine = strings.NewReplacer("\r", " ", "\n", " ")

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// BuildMessage derives the owner notification from a valid submission.
// The reply-to is the submitter so the owner can answer directly.
func BuildMessage(from, to string, sub Submission, now time.Time) *mailer.Message {
	return &mailer.Message{
		From:    from,
		To:      to,
		ReplyTo: headerLine.Replace(sub.Email),
		Subject: headerLine.Replace(fmt.Sprintf("Portfolio Contact: %s <%s>", sub.Name, sub.Email)),
		Text:    fmt.Sprintf("%s <%s>\n\n%s", sub.Name, sub.Email, sub.Message),
		HTML: fmt.Sprintf(
			`<p><strong>Name:</strong> %s</p><p><strong>Email:</strong> %s</p><pre style="white-space:pre-wrap">%s</pre>`,
			escapeHTML(sub.Name), escapeHTML(sub.Email), escapeHTML(sub.Message),
		),
		Date: now,
	}
}
