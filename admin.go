package main

import (
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Zachkp/portfolio/internal/config"
	"github.com/Zachkp/portfolio/internal/logging"
	"github.com/Zachkp/portfolio/internal/visitors"
)

const (
	adminCookie     = "admin_token"
	adminCookieAge  = 24 * 60 * 60
	loginBurst      = 5
	loginRefill     = time.Minute / loginBurst
	limiterIdleTime = 10 * time.Minute
)

// adminServer exposes visitor metrics behind a per-process session token.
type adminServer struct {
	store    *visitors.Store
	username string
	password string
	token    string
	limiter  *loginLimiter
	logger   zerolog.Logger
}

// newAdminServer returns nil when no credentials are configured outside
// debug mode; the admin routes are then not mounted at all.
func newAdminServer(cfg config.Server, store *visitors.Store, logger zerolog.Logger, debug bool) *adminServer {
	logger = logger.With().Str("component", "admin").Logger()

	username, password := cfg.AdminUsername, cfg.AdminPassword
	if username == "" || password == "" {
		if !debug {
			logger.Info().Msg("ADMIN_USERNAME/ADMIN_PASSWORD not set, admin disabled")
			return nil
		}
		if username == "" {
			username = "admin"
		}
		if password == "" {
			password = "admin123"
		}
		logger.Warn().Msg("using default admin credentials; set ADMIN_USERNAME and ADMIN_PASSWORD")
	}

	a := &adminServer{
		store:    store,
		username: username,
		password: password,
		token:    randomToken(),
		limiter:  newLoginLimiter(),
		logger:   logger,
	}
	if debug {
		logger.Debug().Str("token", a.token).Msg("admin token (dev only)")
	}
	return a
}

func (a *adminServer) routes(r *gin.Engine) {
	r.POST("/admin/login", a.login)
	r.GET("/admin/logout", a.logout)

	g := r.Group("/admin")
	g.Use(a.requireSession)
	g.GET("/api/stats", a.stats)
	g.POST("/api/cleanup", a.cleanup)
	g.GET("/export/stats", a.exportStats)
}

type loginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

func (a *adminServer) login(c *gin.Context) {
	log := logging.FromContext(c, a.logger)
	client := a.store.HashIP(c.ClientIP())

	if !a.limiter.allow(client) {
		log.Warn().Str("client", client).Msg("admin login rate limited")
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many login attempts. Please try again later."})
		return
	}

	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(a.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(a.password)) == 1
	if !userOK || !passOK {
		log.Warn().Str("client", client).Msg("failed admin login attempt")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	c.SetCookie(adminCookie, a.token, adminCookieAge, "/admin", "", c.Request.TLS != nil, true)
	log.Info().Str("client", client).Msg("admin login successful")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *adminServer) logout(c *gin.Context) {
	c.SetCookie(adminCookie, "", -1, "/admin", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *adminServer) requireSession(c *gin.Context) {
	token, err := c.Cookie(adminCookie)
	if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.Next()
}

func (a *adminServer) stats(c *gin.Context) {
	stats, err := a.store.Stats(c.Request.Context())
	if err != nil {
		log := logging.FromContext(c, a.logger)
		log.Error().Err(err).Msg("loading admin stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load statistics"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (a *adminServer) exportStats(c *gin.Context) {
	stats, err := a.store.Stats(c.Request.Context())
	if err != nil {
		log := logging.FromContext(c, a.logger)
		log.Error().Err(err).Msg("exporting admin stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load statistics"})
		return
	}
	c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
	c.JSON(http.StatusOK, stats)
}

func (a *adminServer) cleanup(c *gin.Context) {
	n, err := a.store.Cleanup(c.Request.Context(), visitorRetention)
	if err != nil {
		log := logging.FromContext(c, a.logger)
		log.Error().Err(err).Msg("admin cleanup")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cleanup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": n})
}

// loginLimiter throttles login attempts per hashed client address.
type loginLimiter struct {
	mu      sync.Mutex
	clients map[string]*limitedClient
	now     func() time.Time
}

type limitedClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLoginLimiter() *loginLimiter {
	return &loginLimiter{clients: make(map[string]*limitedClient), now: time.Now}
}

func (l *loginLimiter) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, c := range l.clients {
		if now.Sub(c.lastSeen) > limiterIdleTime {
			delete(l.clients, k)
		}
	}

	c, ok := l.clients[client]
	if !ok {
		c = &limitedClient{limiter: rate.NewLimiter(rate.Every(loginRefill), loginBurst)}
		l.clients[client] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}
