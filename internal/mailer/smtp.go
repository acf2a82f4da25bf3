package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// Config describes how to reach and authenticate against an SMTP relay.
type Config struct {
	Host     string
	Port     int
	Secure   bool // implicit TLS (usually port 465)
	Username string
	Password string

	// InsecureSkipVerify disables certificate checks. Development only.
	InsecureSkipVerify bool
	Timeout            time.Duration
	LocalName          string
}

func (c Config) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Dialer opens verified sessions. A successful Dial means the relay is
// reachable and accepted the credentials.
type Dialer interface {
	Dial(ctx context.Context, cfg Config) (Session, error)
}

// Session is an authenticated relay connection.
type Session interface {
	Send(ctx context.Context, msg *Message) error
	Close() error
}

// SMTPDialer dials real relays with go-smtp.
type SMTPDialer struct{}

// NewSMTPDialer returns the production Dialer.
func NewSMTPDialer() *SMTPDialer {
	return &SMTPDialer{}
}

// Dial connects, greets, upgrades to TLS when offered (or connects over
// implicit TLS when cfg.Secure) and authenticates with AUTH PLAIN.
func (d *SMTPDialer) Dial(ctx context.Context, cfg Config) (Session, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	tlsConfig := &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	var nd net.Dialer
	conn, err := nd.DialContext(ctx, "tcp", cfg.addr())
	if err != nil {
		return nil, newError(CodeConnection, fmt.Errorf("dial %s: %w", cfg.addr(), err))
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if cfg.Secure {
		tlsConn := tls.Client(conn, tlsConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, newError(CodeTLS, fmt.Errorf("tls handshake: %w", err))
		}
		conn = tlsConn
	}

	c := smtp.NewClient(conn)
	if cfg.Timeout > 0 {
		c.CommandTimeout = cfg.Timeout
		c.SubmissionTimeout = cfg.Timeout
	}

	localName := cfg.LocalName
	if localName == "" {
		localName = "localhost"
	}
	if err := c.Hello(localName); err != nil {
		c.Close()
		return nil, newError(CodeConnection, fmt.Errorf("hello: %w", err))
	}

	if !cfg.Secure {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsConfig); err != nil {
				c.Close()
				return nil, newError(CodeTLS, fmt.Errorf("starttls: %w", err))
			}
		}
	}

	if err := c.Auth(sasl.NewPlainClient("", cfg.Username, cfg.Password)); err != nil {
		c.Close()
		return nil, newError(CodeAuth, fmt.Errorf("auth: %w", err))
	}

	// Lift the dial deadline; command timeouts govern the session from here.
	conn.SetDeadline(time.Time{})

	return &smtpSession{client: c}, nil
}

type smtpSession struct {
	client *smtp.Client
}

func (s *smtpSession) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return newError(CodeConnection, err)
	}

	from, to, err := msg.envelope()
	if err != nil {
		return newError(CodeEnvelope, err)
	}
	if err := s.client.Mail(from.Address, nil); err != nil {
		return newError(CodeEnvelope, fmt.Errorf("mail from: %w", err))
	}
	if err := s.client.Rcpt(to.Address, nil); err != nil {
		return newError(CodeEnvelope, fmt.Errorf("rcpt to: %w", err))
	}

	w, err := s.client.Data()
	if err != nil {
		return newError(CodeMessage, fmt.Errorf("data: %w", err))
	}
	if err := msg.WriteTo(w); err != nil {
		w.Close()
		return newError(CodeMessage, fmt.Errorf("writing message: %w", err))
	}
	if err := w.Close(); err != nil {
		return newError(CodeMessage, fmt.Errorf("finishing data: %w", err))
	}
	return nil
}

// Close ends the session politely, falling back to dropping the connection.
func (s *smtpSession) Close() error {
	if err := s.client.Quit(); err != nil {
		return s.client.Close()
	}
	return nil
}
