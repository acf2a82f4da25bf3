package mailer

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message/mail"
)

// Message is a single outbound mail with a plain-text and an HTML rendition.
type Message struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
	Date    time.Time
}

// ParseAddress accepts a bare address or one with a display name, such as
// "Portfolio <site@example.com>".
func ParseAddress(s string) (*mail.Address, error) {
	return mail.ParseAddress(s)
}

// envelope parses the sender and recipient.
func (m *Message) envelope() (from, to *mail.Address, err error) {
	if from, err = ParseAddress(m.From); err != nil {
		return nil, nil, fmt.Errorf("from address %q: %w", m.From, err)
	}
	if to, err = ParseAddress(m.To); err != nil {
		return nil, nil, fmt.Errorf("to address %q: %w", m.To, err)
	}
	return from, to, nil
}

// WriteTo serializes m as a multipart/alternative RFC 5322 message.
func (m *Message) WriteTo(w io.Writer) error {
	from, to, err := m.envelope()
	if err != nil {
		return err
	}

	var h mail.Header
	date := m.Date
	if date.IsZero() {
		date = time.Now()
	}
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{from})
	h.SetAddressList("To", []*mail.Address{to})
	if m.ReplyTo != "" {
		h.SetAddressList("Reply-To", []*mail.Address{{Address: m.ReplyTo}})
	}
	h.SetSubject(m.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return fmt.Errorf("generating message id: %w", err)
	}

	mw, err := mail.CreateWriter(w, h)
	if err != nil {
		return fmt.Errorf("creating mail writer: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return fmt.Errorf("creating inline writer: %w", err)
	}
	if err := writePart(tw, "text/plain", m.Text); err != nil {
		return err
	}
	if m.HTML != "" {
		if err := writePart(tw, "text/html", m.HTML); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("closing inline writer: %w", err)
	}

	return mw.Close()
}

func writePart(tw *mail.InlineWriter, contentType, body string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	ph.Set("Content-Transfer-Encoding", "quoted-printable")

	pw, err := tw.CreatePart(ph)
	if err != nil {
		return fmt.Errorf("creating %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(pw, body); err != nil {
		pw.Close()
		return fmt.Errorf("writing %s part: %w", contentType, err)
	}
	return pw.Close()
}
