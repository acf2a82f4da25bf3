package contactform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachkp/portfolio/internal/config"
	"github.com/Zachkp/portfolio/internal/contact"
	"github.com/Zachkp/portfolio/internal/mailer"
)

type okDialer struct{ sent []*mailer.Message }

func (d *okDialer) Dial(context.Context, mailer.Config) (mailer.Session, error) {
	return okSession{d}, nil
}

type okSession struct{ d *okDialer }

func (s okSession) Send(_ context.Context, m *mailer.Message) error {
	s.d.sent = append(s.d.sent, m)
	return nil
}
func (okSession) Close() error { return nil }

func TestHTTPPoster_AgainstRelay(t *testing.T) {
	gin.SetMode(gin.TestMode)
	d := &okDialer{}
	cfg := config.Mail{Host: "smtp.example.com", Port: 25, From: "site@example.com", To: "owner@example.com"}
	relay := contact.NewRelay(d, func() (config.Mail, error) { return cfg, nil }, zerolog.Nop(), false)

	router := gin.New()
	router.POST("/api/contact", relay.Handle)
	srv := httptest.NewServer(router)
	defer srv.Close()

	f := New(NewHTTPPoster(srv.URL+"/api/contact", srv.Client()))
	fill(f)
	state, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Success, state)
	require.Len(t, d.sent, 1)
	assert.Equal(t, "ada@example.com", d.sent[0].ReplyTo)
}

func TestHTTPPoster_ErrorStatusStillDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(contact.Result{Error: contact.ErrMissingFields})
	}))
	defer srv.Close()

	res, err := NewHTTPPoster(srv.URL, nil).Post(context.Background(), contact.Submission{})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, contact.ErrMissingFields, res.Error)
}

func TestHTTPPoster_UndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	res, err := NewHTTPPoster(srv.URL, nil).Post(context.Background(), contact.Submission{})
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestHTTPPoster_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPPoster(url, nil).Post(context.Background(), contact.Submission{})
	assert.Error(t, err)
}
