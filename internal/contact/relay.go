package contact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Zachkp/portfolio/internal/config"
	"github.com/Zachkp/portfolio/internal/logging"
	"github.com/Zachkp/portfolio/internal/mailer"
)

// maxBodyBytes bounds the contact payload; anything larger is treated as
// a malformed body.
const maxBodyBytes = 64 << 10

const maxStackLines = 6

// MailConfigFunc returns the relay settings for one submission.
type MailConfigFunc func() (config.Mail, error)

// Relay is the contact form endpoint: it validates a submission, verifies
// the SMTP relay and forwards the message to the site owner. It holds no
// per-request state and is safe for concurrent use.
type Relay struct {
	dialer     mailer.Dialer
	loadConfig MailConfigFunc
	logger     zerolog.Logger
	debug      bool
	now        func() time.Time
}

// NewRelay wires a Relay. When debug is true, failure diagnostics include
// call stacks.
func NewRelay(dialer mailer.Dialer, loadConfig MailConfigFunc, logger zerolog.Logger, debug bool) *Relay {
	return &Relay{
		dialer:     dialer,
		loadConfig: loadConfig,
		logger:     logger.With().Str("component", "contact_relay").Logger(),
		debug:      debug,
		now:        time.Now,
	}
}

type outcomeKind int

const (
	outcomeSent outcomeKind = iota
	outcomeBot
	outcomeInvalid
	outcomeConfigMissing
	outcomeVerifyFailed
	outcomeSendFailed
	outcomePanic
)

// outcome is the terminal state of one submission. Only respond turns it
// into an HTTP status and body.
type outcome struct {
	kind  outcomeKind
	err   error
	stack []string
}

// Handle is the gin handler for POST /api/contact.
func (r *Relay) Handle(c *gin.Context) {
	var out outcome
	func() {
		defer func() {
			if p := recover(); p != nil {
				out = outcome{
					kind:  outcomePanic,
					err:   fmt.Errorf("panic: %v", p),
					stack: stackLines(debug.Stack()),
				}
			}
		}()
		out = r.process(c.Request.Context(), r.decode(c))
	}()

	r.respond(c, out)
}

// decode reads the submission. A body that is not a JSON object is treated
// as an empty submission. Name, email and message count only as strings;
// website trips the honeypot on any truthy JSON value.
func (r *Relay) decode(c *gin.Context) Submission {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		return Submission{}
	}
	return Submission{
		Name:    stringField(fields["name"]),
		Email:   stringField(fields["email"]),
		Message: stringField(fields["message"]),
		Website: honeypotField(fields["website"]),
	}
}

func stringField(v any) string {
	s, _ := v.(string)
	return s
}

// honeypotField renders a truthy value as non-empty text and a falsy one
// (null, false, 0, "") as "".
func honeypotField(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return ""
	case float64:
		if v == 0 || math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case json.Number:
		if f, err := v.Float64(); err == nil && f == 0 {
			return ""
		}
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func (r *Relay) process(ctx context.Context, sub Submission) outcome {
	if sub.Website != "" {
		return outcome{kind: outcomeBot}
	}
	if sub.Name == "" || sub.Email == "" || sub.Message == "" {
		return outcome{kind: outcomeInvalid}
	}

	cfg, err := r.loadConfig()
	if err != nil {
		return outcome{kind: outcomeConfigMissing, err: err}
	}

	sess, err := r.dialer.Dial(ctx, cfg.Transport())
	if err != nil {
		return outcome{kind: outcomeVerifyFailed, err: err}
	}
	defer func() {
		if err := sess.Close(); err != nil {
			r.logger.Debug().Err(err).Msg("closing smtp session")
		}
	}()

	msg := BuildMessage(cfg.From, cfg.To, sub, r.now())
	if err := sess.Send(ctx, msg); err != nil {
		return outcome{kind: outcomeSendFailed, err: err}
	}
	return outcome{kind: outcomeSent}
}

func (r *Relay) respond(c *gin.Context, out outcome) {
	logger := logging.FromContext(c, r.logger)

	switch out.kind {
	case outcomeSent:
		logger.Info().Msg("contact message sent")
		c.JSON(http.StatusOK, Result{OK: true})

	case outcomeBot:
		logger.Debug().Msg("honeypot filled, dropping submission")
		c.JSON(http.StatusOK, Result{OK: true, Bot: true})

	case outcomeInvalid:
		c.JSON(http.StatusBadRequest, Result{Error: ErrMissingFields})

	case outcomeConfigMissing:
		logger.Error().Err(out.err).Msg("mail relay is not configured")
		c.JSON(http.StatusInternalServerError, Result{Error: ErrConfigMissing})

	case outcomeVerifyFailed:
		detail := r.diagnose(out)
		logger.Error().Err(out.err).Str("code", detail.Code).Msg("smtp verify failed")
		c.JSON(http.StatusInternalServerError, Result{Error: ErrVerifyFailed, Detail: detail})

	case outcomeSendFailed:
		detail := r.diagnose(out)
		logger.Error().Err(out.err).Str("code", detail.Code).Msg("smtp send failed")
		c.JSON(http.StatusInternalServerError, Result{Error: ErrSendFailed, Detail: detail})

	default:
		logger.Error().Err(out.err).Strs("stack", out.stack).Msg("unexpected contact handler failure")
		c.JSON(http.StatusInternalServerError, Result{Error: ErrInternal, Detail: r.diagnose(out)})
	}
}

// diagnose strips a failure down to what may be shown to the caller.
func (r *Relay) diagnose(out outcome) *Diagnostic {
	d := &Diagnostic{Message: "unknown error"}
	stack := out.stack

	var mErr *mailer.Error
	switch {
	case errors.As(out.err, &mErr):
		d.Code = mErr.Code
		d.Response = mErr.Response
		if mErr.Err != nil {
			d.Message = mErr.Err.Error()
		}
		if stack == nil {
			stack = mErr.Stack()
		}
	case out.err != nil:
		d.Message = out.err.Error()
	}

	if r.debug {
		if len(stack) > maxStackLines {
			stack = stack[:maxStackLines]
		}
		d.Stack = stack
	}
	return d
}

// stackLines flattens a goroutine dump, dropping the frames of the
// recovery machinery above the panic site.
func stackLines(raw []byte) []string {
	var lines []string
	for _, l := range strings.Split(string(raw), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	for i, l := range lines {
		if strings.HasPrefix(l, "panic(") && i+2 <= len(lines) {
			return lines[i+2:]
		}
	}
	return lines
}
