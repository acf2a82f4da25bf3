package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Zachkp/portfolio/internal/mailer"
)

// Server holds the settings read once at startup.
type Server struct {
	Port          string
	SiteDir       string
	DBPath        string
	AdminUsername string
	AdminPassword string
	CORSOrigins   []string
}

// Mail holds the SMTP relay settings. It is re-read on every contact
// submission so a fixed deployment secret takes effect without a restart.
type Mail struct {
	Host        string
	Port        int
	Secure      bool
	Username    string
	Password    string
	From        string
	To          string
	TLSInsecure bool
	Timeout     time.Duration
}

// Transport returns the dialer settings for m.
func (m Mail) Transport() mailer.Config {
	return mailer.Config{
		Host:               m.Host,
		Port:               m.Port,
		Secure:             m.Secure,
		Username:           m.Username,
		Password:           m.Password,
		InsecureSkipVerify: m.TLSInsecure,
		Timeout:            m.Timeout,
	}
}

// MissingError reports which required mail settings are absent or unusable.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return "missing mail configuration: " + strings.Join(e.Keys, ", ")
}

// requiredMailKeys is ordered the way the keys are documented.
var requiredMailKeys = []string{
	"SMTP_HOST",
	"SMTP_PORT",
	"SMTP_USER",
	"SMTP_PASS",
	"FROM_EMAIL",
	"TO_EMAIL",
}

// LoadDotEnv loads .env files into the process environment. A missing file
// is not an error; existing variables are never overwritten.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// New returns a viper instance bound to the process environment with the
// defaults this service relies on.
func New() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("SITE_DIR", "./public")
	v.SetDefault("DB_PATH", "portfolio.db")
	v.SetDefault("SMTP_TIMEOUT", "10s")
	return v
}

// LoadServer reads the startup settings.
func LoadServer(v *viper.Viper) Server {
	var origins []string
	for _, o := range strings.Split(v.GetString("CORS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return Server{
		Port:          v.GetString("PORT"),
		SiteDir:       v.GetString("SITE_DIR"),
		DBPath:        v.GetString("DB_PATH"),
		AdminUsername: v.GetString("ADMIN_USERNAME"),
		AdminPassword: v.GetString("ADMIN_PASSWORD"),
		CORSOrigins:   origins,
	}
}

// LoadMail reads the relay settings. Every key in requiredMailKeys must be
// set; SMTP_PORT must also parse as a TCP port and FROM_EMAIL/TO_EMAIL as
// addresses, optionally with a display name. The returned *MissingError
// lists every offending key, not just the first.
func LoadMail(v *viper.Viper) (Mail, error) {
	var missing []string
	for _, key := range requiredMailKeys {
		if strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, key)
		}
	}

	rawPort := strings.TrimSpace(v.GetString("SMTP_PORT"))
	port, err := strconv.Atoi(rawPort)
	if rawPort != "" && (err != nil || port <= 0 || port > 65535) {
		missing = append(missing, "SMTP_PORT")
	}
	for _, key := range []string{"FROM_EMAIL", "TO_EMAIL"} {
		if raw := strings.TrimSpace(v.GetString(key)); raw != "" {
			if _, err := mailer.ParseAddress(raw); err != nil {
				missing = append(missing, key)
			}
		}
	}
	if len(missing) > 0 {
		return Mail{}, &MissingError{Keys: missing}
	}

	timeout, err := time.ParseDuration(v.GetString("SMTP_TIMEOUT"))
	if err != nil || timeout <= 0 {
		timeout = 10 * time.Second
	}

	return Mail{
		Host:        v.GetString("SMTP_HOST"),
		Port:        port,
		Secure:      v.GetBool("SMTP_SECURE"),
		Username:    v.GetString("SMTP_USER"),
		Password:    v.GetString("SMTP_PASS"),
		From:        strings.TrimSpace(v.GetString("FROM_EMAIL")),
		To:          strings.TrimSpace(v.GetString("TO_EMAIL")),
		TLSInsecure: v.GetBool("SMTP_TLS_INSECURE"),
		Timeout:     timeout,
	}, nil
}
