// Package contactform is the client side of the contact pipeline: it owns
// the draft, validates it locally and drives a single submission request
// through an explicit state machine.
package contactform

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/Zachkp/portfolio/internal/contact"
)

// State is the submission state of a Form.
type State int

const (
	Idle State = iota
	Validating
	Sending
	Success
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Sending:
		return "sending"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// User-facing status messages.
const (
	MsgName         = "Please enter your name."
	MsgEmail        = "Please enter a valid email."
	MsgMessage      = "Message should be at least 10 characters."
	MsgServerFailed = "Something went wrong. Please try again later."
	MsgNetwork      = "Network error. Please check your connection and try again."
	MsgSent         = "Thanks! Your message has been sent."
)

const minMessageLen = 10

// ErrSubmitInFlight is returned when Submit is called while a previous
// submission from the same form is still sending.
var ErrSubmitInFlight = errors.New("contactform: submission already in flight")

// Draft is the editable form content. Honeypot mirrors the hidden
// "website" field.
type Draft struct {
	Name     string
	Email    string
	Message  string
	Honeypot string
}

// Poster delivers one submission. A nil *contact.Result with a nil error
// means the server answered without a decodable body.
type Poster interface {
	Post(ctx context.Context, sub contact.Submission) (*contact.Result, error)
}

// Form holds one contact form instance. It is safe for concurrent use and
// never has more than one request in flight.
type Form struct {
	poster Poster

	mu     sync.Mutex
	draft  Draft
	state  State
	status string
	// gen increments on Reset so a response to an abandoned submission is
	// dropped instead of overwriting the fresh form.
	gen uint64
	// inflight stays set until Post returns, even across Reset; cancel
	// aborts that request.
	inflight bool
	cancel   context.CancelFunc
}

// New returns an idle, empty form.
func New(poster Poster) *Form {
	return &Form{poster: poster}
}

// State reports the current state and the status line shown to the user.
func (f *Form) State() (State, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.status
}

// Draft returns a copy of the current field values.
func (f *Form) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// CanSubmit reports whether the submit control is enabled.
func (f *Form) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.inflight
}

func (f *Form) SetName(v string)     { f.edit(func(d *Draft) { d.Name = v }) }
func (f *Form) SetEmail(v string)    { f.edit(func(d *Draft) { d.Email = v }) }
func (f *Form) SetMessage(v string)  { f.edit(func(d *Draft) { d.Message = v }) }
func (f *Form) SetHoneypot(v string) { f.edit(func(d *Draft) { d.Honeypot = v }) }

// edit applies a field change. Editing after a finished attempt returns
// the form to idle.
func (f *Form) edit(apply func(*Draft)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	apply(&f.draft)
	if f.state == Success || f.state == Error {
		f.state = Idle
		f.status = ""
	}
}

// Reset clears every field and returns to idle from any state. A request
// still sending is cancelled, and submitting stays blocked until it returns.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
	}
	f.draft = Draft{}
	f.state = Idle
	f.status = ""
	f.gen++
}

// Validate checks a draft without touching the network and returns the
// message for the first failing field, or "" when the draft is valid.
func Validate(d Draft) string {
	if strings.TrimSpace(d.Name) == "" {
		return MsgName
	}
	if d.Email == "" || !contact.EmailPattern.MatchString(d.Email) {
		return MsgEmail
	}
	if utf8.RuneCountInString(strings.TrimSpace(d.Message)) < minMessageLen {
		return MsgMessage
	}
	return ""
}

// Submit runs one submission attempt and returns the resulting state.
// Calling Submit while a request is in flight is a no-op that returns
// ErrSubmitInFlight.
// A transport failure is returned alongside the Error state; server-side
// failures only surface through the status line.
func (f *Form) Submit(ctx context.Context) (State, error) {
	f.mu.Lock()
	if f.inflight {
		state := f.state
		f.mu.Unlock()
		return state, ErrSubmitInFlight
	}

	// Bots get a silent success and no request.
	if f.draft.Honeypot != "" {
		f.draft = Draft{}
		f.state, f.status = Success, MsgSent
		f.mu.Unlock()
		return Success, nil
	}

	f.state, f.status = Validating, ""
	if msg := Validate(f.draft); msg != "" {
		f.state, f.status = Error, msg
		f.mu.Unlock()
		return Error, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	f.state = Sending
	f.inflight, f.cancel = true, cancel
	gen := f.gen
	sub := contact.Submission{
		Name:    f.draft.Name,
		Email:   f.draft.Email,
		Message: f.draft.Message,
		Website: f.draft.Honeypot,
	}
	f.mu.Unlock()

	res, err := f.poster.Post(ctx, sub)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inflight, f.cancel = false, nil
	if gen != f.gen {
		return f.state, nil
	}

	switch {
	case err != nil:
		f.state, f.status = Error, MsgNetwork
	case res != nil && res.OK:
		f.draft = Draft{}
		f.state, f.status = Success, MsgSent
	case res != nil && res.Error != "":
		f.state, f.status = Error, res.Error
	default:
		f.state, f.status = Error, MsgServerFailed
	}
	return f.state, err
}
