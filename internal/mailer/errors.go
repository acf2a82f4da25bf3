package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"runtime"
	"strconv"

	"github.com/emersion/go-smtp"
)

// Error codes attached to transport failures.
const (
	CodeConnection = "ECONNECTION"
	CodeTimeout    = "ETIMEDOUT"
	CodeTLS        = "ETLS"
	CodeAuth       = "EAUTH"
	CodeEnvelope   = "EENVELOPE"
	CodeMessage    = "EMESSAGE"
)

const maxStackFrames = 6

// Error is a classified SMTP transport failure.
type Error struct {
	Code     string
	Response string
	Err      error

	stack []string
}

func (e *Error) Error() string {
	if e.Response != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Code, e.Err, e.Response)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Stack returns the call frames recorded where the error was classified.
func (e *Error) Stack() []string { return e.stack }

// newError classifies err under code. Network timeouts override the code;
// SMTP replies are kept as the response text.
func newError(code string, err error) *Error {
	e := &Error{Code: code, Err: err, stack: callers(3)}

	var smtpErr *smtp.SMTPError
	if errors.As(err, &smtpErr) {
		e.Response = strconv.Itoa(smtpErr.Code) + " " + smtpErr.Message
	}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		e.Code = CodeTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		e.Code = CodeTimeout
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		e.Code = CodeTLS
	}
	return e
}

func callers(skip int) []string {
	pcs := make([]uintptr, maxStackFrames)
	n := runtime.Callers(skip, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])

	var out []string
	for {
		f, more := frames.Next()
		out = append(out, fmt.Sprintf("%s (%s:%d)", f.Function, f.File, f.Line))
		if !more {
			break
		}
	}
	return out
}
