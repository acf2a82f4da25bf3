package visitors

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Recorder stores a single visit.
type Recorder interface {
	Record(ctx context.Context, ip, userAgent, path string) error
}

var untrackedPrefixes = []string{
	"/api/",
	"/static/",
	"/images/",
	"/admin",
	"/favicon",
}

const recordTimeout = 5 * time.Second

// Middleware records page views in the background. API calls, assets and
// admin pages are skipped, as is any request carrying DNT: 1.
func Middleware(rec Recorder, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if c.Request.Method != "GET" || !tracked(path) || c.GetHeader("DNT") == "1" {
			c.Next()
			return
		}

		ip, ua := c.ClientIP(), c.GetHeader("User-Agent")
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
			defer cancel()
			if err := rec.Record(ctx, ip, ua, path); err != nil {
				logger.Warn().Err(err).Msg("recording visit")
			}
		}()
		c.Next()
	}
}

func tracked(path string) bool {
	for _, p := range untrackedPrefixes {
		if strings.HasPrefix(path, p) {
			return false
		}
	}
	return true
}
