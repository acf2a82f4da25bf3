package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Zachkp/portfolio/internal/config"
	"github.com/Zachkp/portfolio/internal/logging"
	"github.com/Zachkp/portfolio/internal/mailer"
)

func newSMTPCheckCmd(v *viper.Viper) *cobra.Command {
	var verifyOnly bool

	cmd := &cobra.Command{
		Use:   "smtp-check",
		Short: "Verify the configured SMTP relay and send a test message",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := logging.New(debugMode(), os.Stdout)

			cfg, err := config.LoadMail(v)
			if err != nil {
				return err
			}

			logger.Info().Str("host", cfg.Host).Int("port", cfg.Port).Bool("secure", cfg.Secure).Msg("verifying transport")
			sess, err := mailer.NewSMTPDialer().Dial(cmd.Context(), cfg.Transport())
			if err != nil {
				return fmt.Errorf("verify: %w", err)
			}
			defer sess.Close()
			logger.Info().Msg("transport verified")

			if verifyOnly {
				return nil
			}

			err = sess.Send(cmd.Context(), &mailer.Message{
				From:    cfg.From,
				To:      cfg.To,
				Subject: "Portfolio SMTP test",
				Text:    "This is a test sent from your portfolio backend.",
				Date:    time.Now(),
			})
			if err != nil {
				return fmt.Errorf("send: %w", err)
			}
			logger.Info().Str("to", cfg.To).Msg("test message sent")
			return nil
		},
	}
	cmd.Flags().BoolVar(&verifyOnly, "verify-only", false, "only verify connectivity and credentials")
	return cmd
}
