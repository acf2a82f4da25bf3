package contact

// Submission is the JSON body posted by the contact form. Website is the
// honeypot field and must stay empty for humans.
type Submission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
	Website string `json:"website,omitempty"`
}

// Result is the JSON body returned for every submission attempt.
type Result struct {
	OK     bool        `json:"ok"`
	Bot    bool        `json:"bot,omitempty"`
	Error  string      `json:"error,omitempty"`
	Detail *Diagnostic `json:"detail,omitempty"`
}

// Diagnostic is the sanitized description of a server-side failure.
// Stack is only populated when the server runs in debug mode.
type Diagnostic struct {
	Message  string   `json:"message"`
	Code     string   `json:"code,omitempty"`
	Response string   `json:"response,omitempty"`
	Stack    []string `json:"stack,omitempty"`
}

// Response messages shared with the client.
const (
	ErrMissingFields  = "Missing fields."
	ErrConfigMissing  = "SMTP env vars missing."
	ErrVerifyFailed   = "SMTP verify failed"
	ErrSendFailed     = "SMTP send failed"
	ErrInternal       = "Internal server error"
	ErrInvalidEmail   = "Valid email required."
	ErrSubscribeFault = "Server error"
)
