package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage/internal/logger"
	"triage/pkg/logging"
)

func TestRequestContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name          string
		headers       map[string]string
		wantRequestID string
		wantActor     string
	}{
		{
			name:          "headers propagated",
			headers:       map[string]string{RequestIDHeader: "req-1", UserIDHeader: "alice"},
			wantRequestID: "req-1",
			wantActor:     "alice",
		},
		{
			name:    "generated request id, anonymous caller",
			headers: map[string]string{UserIDHeader: "   "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotRequestID, gotActor string

			router := gin.New()
			router.Use(RequestContext())
			router.GET("/", func(c *gin.Context) {
				gotRequestID = logging.RequestID(c.Request.Context())
				gotActor = logging.Actor(c.Request.Context())
				c.Status(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusNoContent, w.Code)
			assert.NotEmpty(t, gotRequestID)
			assert.Equal(t, gotRequestID, w.Header().Get(RequestIDHeader))
			if tt.wantRequestID != "" {
				assert.Equal(t, tt.wantRequestID, gotRequestID)
			}
			assert.Equal(t, tt.wantActor, gotActor)
		})
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(Recovery(logger.NopLogger()), AccessLog(logger.NopLogger()))
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body["error_code"])
}
