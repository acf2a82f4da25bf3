package contact

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildMessage(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	sub := Submission{Name: "Ada", Email: "ada@example.com", Message: "Hello, this is a test message."}

	msg := BuildMessage("site@example.com", "owner@example.com", sub, now)

	assert.Equal(t, "site@example.com", msg.From)
	assert.Equal(t, "owner@example.com", msg.To)
	assert.Equal(t, "ada@example.com", msg.ReplyTo)
	assert.Equal(t, "Portfolio Contact: Ada <ada@example.com>", msg.Subject)
	assert.Equal(t, "Ada <ada@example.com>\n\nHello, this is a test message.", msg.Text)
	assert.Equal(t,
		`<p><strong>Name:</strong> Ada</p><p><strong>Email:</strong> ada@example.com</p><pre style="white-space:pre-wrap">Hello, this is a test message.</pre>`,
		msg.HTML)
	assert.Equal(t, now, msg.Date)
}

func TestBuildMessage_EscapesHTML(t *testing.T) {
	sub := Submission{
		Name:    `Mallory "M" O'Neil`,
		Email:   "m&m@example.com",
		Message: `<script>alert("x")</script>`,
	}

	msg := BuildMessage("site@example.com", "owner@example.com", sub, time.Now())

	assert.Contains(t, msg.HTML, "&lt;script&gt;alert(&quot;x&quot;)&lt;/script&gt;")
	assert.Contains(t, msg.HTML, "Mallory &quot;M&quot; O&#39;Neil")
	assert.Contains(t, msg.HTML, "m&amp;m@example.com")
	assert.NotContains(t, msg.HTML, "<script>")
	// The plain-text rendition is not HTML and stays verbatim.
	assert.Contains(t, msg.Text, "<script>")
}

func TestBuildMessage_NoHeaderInjection(t *testing.T) {
	sub := Submission{
		Name:    "Ada\r\nBcc: victim@example.com",
		Email:   "ada@example.com\nBcc: other@example.com",
		Message: "Hello, this is a test message.",
	}

	msg := BuildMessage("site@example.com", "owner@example.com", sub, time.Now())

	assert.False(t, strings.ContainsAny(msg.Subject, "\r\n"))
	assert.False(t, strings.ContainsAny(msg.ReplyTo, "\r\n"))
}

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "&amp;&lt;&gt;&quot;&#39;", escapeHTML(`&<>"'`))
	assert.Equal(t, "&amp;lt;", escapeHTML("&lt;"))
}
