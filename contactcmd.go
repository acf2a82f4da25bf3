package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zachkp/portfolio/internal/contactform"
)

func newContactCmd() *cobra.Command {
	var (
		url     string
		draft   contactform.Draft
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "contact",
		Short: "Submit the contact form to a running server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			form := contactform.New(contactform.NewHTTPPoster(url, &http.Client{Timeout: timeout}))
			form.SetName(draft.Name)
			form.SetEmail(draft.Email)
			form.SetMessage(draft.Message)
			form.SetHoneypot(draft.Honeypot)

			state, err := form.Submit(cmd.Context())
			_, status := form.State()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", state, status)
			if err != nil {
				return err
			}
			if state != contactform.Success {
				return errors.New(status)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&url, "url", "http://localhost:8080/api/contact", "contact endpoint")
	f.StringVar(&draft.Name, "name", "", "your name")
	f.StringVar(&draft.Email, "email", "", "your email address")
	f.StringVar(&draft.Message, "message", "", "message body")
	f.StringVar(&draft.Honeypot, "website", "", "honeypot field; leave empty")
	f.DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
	return cmd
}
