package mailer

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type received struct {
	From string
	To   []string
	Data []byte
}

type testBackend struct {
	username, password string
	rejectRcpt         bool

	mu       sync.Mutex
	messages []received
}

func (b *testBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &testSession{backend: b}, nil
}

func (b *testBackend) Messages() []received {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]received(nil), b.messages...)
}

type testSession struct {
	backend *testBackend
	authed  bool
	msg     received
}

func (s *testSession) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

func (s *testSession) Auth(mech string) (sasl.Server, error) {
	return sasl.NewPlainServer(func(identity, username, password string) error {
		if username != s.backend.username || password != s.backend.password {
			return errors.New("invalid credentials")
		}
		s.authed = true
		return nil
	}), nil
}

func (s *testSession) Mail(from string, _ *smtp.MailOptions) error {
	if !s.authed {
		return smtp.ErrAuthRequired
	}
	s.msg.From = from
	return nil
}

func (s *testSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	if s.backend.rejectRcpt {
		return &smtp.SMTPError{Code: 550, EnhancedCode: smtp.EnhancedCode{5, 1, 1}, Message: "no such user"}
	}
	s.msg.To = append(s.msg.To, to)
	return nil
}

func (s *testSession) Data(r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.msg.Data = b

	s.backend.mu.Lock()
	s.backend.messages = append(s.backend.messages, s.msg)
	s.backend.mu.Unlock()
	return nil
}

func (s *testSession) Reset()        { s.msg = received{} }
func (s *testSession) Logout() error { return nil }

func startServer(t *testing.T, be *testBackend) Config {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := smtp.NewServer(be)
	srv.Domain = "localhost"
	srv.AllowInsecureAuth = true
	srv.ReadTimeout = 5 * time.Second
	srv.WriteTimeout = 5 * time.Second

	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })

	addr := ln.Addr().(*net.TCPAddr)
	return Config{
		Host:     "127.0.0.1",
		Port:     addr.Port,
		Username: be.username,
		Password: be.password,
		Timeout:  5 * time.Second,
	}
}

func TestSMTPDialer_SendsMessage(t *testing.T) {
	be := &testBackend{username: "relay", password: "hunter2"}
	cfg := startServer(t, be)

	sess, err := NewSMTPDialer().Dial(context.Background(), cfg)
	require.NoError(t, err)

	msg := &Message{
		From:    "site@example.com",
		To:      "owner@example.com",
		ReplyTo: "ada@example.com",
		Subject: "hello",
		Text:    "Hello, this is a test message.",
	}
	require.NoError(t, sess.Send(context.Background(), msg))
	require.NoError(t, sess.Close())

	got := be.Messages()
	require.Len(t, got, 1)
	assert.Equal(t, "site@example.com", got[0].From)
	assert.Equal(t, []string{"owner@example.com"}, got[0].To)
	assert.Contains(t, string(got[0].Data), "Reply-To: <ada@example.com>")
}

func TestSMTPSession_DisplayNameSender(t *testing.T) {
	be := &testBackend{username: "relay", password: "hunter2"}
	cfg := startServer(t, be)

	sess, err := NewSMTPDialer().Dial(context.Background(), cfg)
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, sess.Send(context.Background(), &Message{
		From: "Portfolio <site@example.com>",
		To:   "Owner <owner@example.com>",
		Text: "Hello, this is a test message.",
	}))

	got := be.Messages()
	require.Len(t, got, 1)
	assert.Equal(t, "site@example.com", got[0].From)
	assert.Equal(t, []string{"owner@example.com"}, got[0].To)
	assert.Regexp(t, `(?m)^From: "?Portfolio"? <site@example\.com>`, string(got[0].Data))
}

func TestSMTPDialer_AuthFailure(t *testing.T) {
	be := &testBackend{username: "relay", password: "hunter2"}
	cfg := startServer(t, be)
	cfg.Password = "wrong"

	sess, err := NewSMTPDialer().Dial(context.Background(), cfg)
	require.Error(t, err)
	assert.Nil(t, sess)

	var mErr *Error
	require.True(t, errors.As(err, &mErr))
	assert.Equal(t, CodeAuth, mErr.Code)
	assert.NotEmpty(t, mErr.Response)
	assert.NotEmpty(t, mErr.Stack())
	assert.Empty(t, be.Messages())
}

func TestSMTPDialer_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	_, err = NewSMTPDialer().Dial(context.Background(), Config{
		Host:    "127.0.0.1",
		Port:    port,
		Timeout: time.Second,
	})

	var mErr *Error
	require.True(t, errors.As(err, &mErr))
	assert.Equal(t, CodeConnection, mErr.Code)
}

func TestSMTPSession_RecipientRejected(t *testing.T) {
	be := &testBackend{username: "relay", password: "hunter2", rejectRcpt: true}
	cfg := startServer(t, be)

	sess, err := NewSMTPDialer().Dial(context.Background(), cfg)
	require.NoError(t, err)
	defer sess.Close()

	err = sess.Send(context.Background(), &Message{From: "a@example.com", To: "nobody@example.com", Text: "x"})

	var mErr *Error
	require.True(t, errors.As(err, &mErr))
	assert.Equal(t, CodeEnvelope, mErr.Code)
	assert.Contains(t, mErr.Response, "550")
	assert.Contains(t, mErr.Response, "no such user")
}
