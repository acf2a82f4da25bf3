package contact

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Zachkp/portfolio/internal/logging"
)

// EmailPattern is the loose address check shared by the form and the
// newsletter endpoint.
var EmailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

type subscribeRequest struct {
	Email string `json:"email"`
}

// Subscribe handles POST /api/subscribe. It only validates and logs the
// address; no list provider is wired up.
func Subscribe(logger zerolog.Logger) gin.HandlerFunc {
	logger = logger.With().Str("component", "newsletter").Logger()

	return func(c *gin.Context) {
		log := logging.FromContext(c, logger)

		var req subscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Error().Err(err).Msg("subscribe: decoding body")
			c.JSON(http.StatusInternalServerError, Result{Error: ErrSubscribeFault})
			return
		}

		email := strings.TrimSpace(req.Email)
		if email == "" || !EmailPattern.MatchString(email) {
			c.JSON(http.StatusBadRequest, Result{Error: ErrInvalidEmail})
			return
		}

		log.Info().Str("email", email).Msg("new newsletter signup")
		c.JSON(http.StatusOK, Result{OK: true})
	}
}
