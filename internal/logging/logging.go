package logging

import (
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
)

// New builds the process logger. Debug mode gets a human-readable console
// writer on stderr; release mode writes JSON to w (stdout when nil).
func New(debug bool, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Middleware tags every request with an id, stores it on the context and
// writes one access line when the handler returns.
func Middleware(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		c.Set(requestIDKey, id)
		logger := base.With().Str("request_id", id).Logger()

		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		if status >= 500 {
			event = logger.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// FromContext returns logger tagged with the request id set by Middleware.
// Fields already on logger, such as its component, are kept. Without the
// middleware logger is returned unchanged.
func FromContext(c *gin.Context, logger zerolog.Logger) zerolog.Logger {
	if id := c.GetString(requestIDKey); id != "" {
		return logger.With().Str("request_id", id).Logger()
	}
	return logger
}
