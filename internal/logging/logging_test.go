package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_RequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	base := New(false, &buf)

	router := gin.New()
	component := base.With().Str("component", "pinger").Logger()
	router.Use(Middleware(base))
	router.GET("/ping", func(c *gin.Context) {
		l := FromContext(c, component)
		l.Info().Msg("handled")
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	id := rec.Header().Get(requestIDHeader)
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var handled, access map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &handled))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &access))

	assert.Equal(t, id, handled["request_id"])
	assert.Equal(t, "handled", handled["message"])
	assert.Equal(t, "pinger", handled["component"])
	assert.Equal(t, id, access["request_id"])
	assert.Equal(t, "/ping", access["path"])
	assert.Equal(t, float64(http.StatusNoContent), access["status"])
}

func TestMiddleware_KeepsValidIncomingID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware(zerolog.Nop()))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, id)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "not-a-uuid\r\n")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(requestIDHeader))
}

func TestFromContext_Fallback(t *testing.T) {
	var buf bytes.Buffer
	fallback := zerolog.New(&buf)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	l := FromContext(c, fallback)
	l.Info().Msg("x")
	assert.Contains(t, buf.String(), `"message":"x"`)
}
