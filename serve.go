package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/handlers"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Zachkp/portfolio/internal/config"
	"github.com/Zachkp/portfolio/internal/contact"
	"github.com/Zachkp/portfolio/internal/logging"
	"github.com/Zachkp/portfolio/internal/mailer"
	"github.com/Zachkp/portfolio/internal/visitors"
)

const (
	visitorRetention = 365 * 24 * time.Hour
	cleanupInterval  = 24 * time.Hour
	shutdownTimeout  = 5 * time.Second
)

type app struct {
	logger  zerolog.Logger
	relay   *contact.Relay
	store   *visitors.Store
	admin   *adminServer
	siteDir string
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), v)
		},
	}
}

func serve(ctx context.Context, v *viper.Viper) error {
	debug := debugMode()
	logger := logging.New(debug, os.Stdout)
	cfg := config.LoadServer(v)

	salt := v.GetString("VISITOR_SALT")
	if salt == "" {
		salt = randomToken()
		logger.Warn().Msg("VISITOR_SALT not set; unique visitor counts reset on restart")
	}
	store, err := visitors.Open(cfg.DBPath, salt)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.DBPath).Msg("opening visitor store")
		return err
	}
	defer store.Close()

	a := &app{
		logger:  logger,
		relay:   contact.NewRelay(mailer.NewSMTPDialer(), func() (config.Mail, error) { return config.LoadMail(v) }, logger, debug),
		store:   store,
		admin:   newAdminServer(cfg, store, logger, debug),
		siteDir: cfg.SiteDir,
	}

	if _, err := config.LoadMail(v); err != nil {
		logger.Warn().Err(err).Msg("contact form will fail until mail settings are provided")
	}

	var handler http.Handler = newRouter(a)
	if len(cfg.CORSOrigins) > 0 {
		handler = handlers.CORS(
			handlers.AllowedOrigins(cfg.CORSOrigins),
			handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
			handlers.AllowedHeaders([]string{"Content-Type"}),
		)(handler)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go cleanupLoop(ctx, store, logger)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("starting server")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
			return err
		}
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("could not stop server gracefully")
			srv.Close()
		}
	}
	return nil
}

func newRouter(a *app) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(a.logger))
	if a.store != nil {
		r.Use(visitors.Middleware(a.store, a.logger))
	}

	r.Static("/static", filepath.Join(a.siteDir, "static"))
	r.Static("/images", filepath.Join(a.siteDir, "images"))
	r.StaticFile("/", filepath.Join(a.siteDir, "index.html"))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	api := r.Group("/api")
	api.POST("/contact", a.relay.Handle)
	api.POST("/subscribe", contact.Subscribe(a.logger))

	if a.admin != nil {
		a.admin.routes(r)
	}
	return r
}

// cleanupLoop enforces the visitor retention window at startup and then daily.
func cleanupLoop(ctx context.Context, store *visitors.Store, logger zerolog.Logger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		n, err := store.Cleanup(ctx, visitorRetention)
		switch {
		case err != nil:
			logger.Error().Err(err).Msg("cleaning up visitor data")
		case n > 0:
			logger.Info().Int64("removed", n).Msg("privacy cleanup removed expired visitor records")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func randomToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	return hex.EncodeToString(b)
}
