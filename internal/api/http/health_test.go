package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)

	up := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		checks     map[string]Pinger
		wantStatus string
		wantChecks map[string]string
	}{
		{"all up", map[string]Pinger{"store": up}, "healthy", map[string]string{"store": "up"}},
		{"journal disabled", map[string]Pinger{"store": up, "journal": nil}, "healthy", map[string]string{"store": "up", "journal": "disabled"}},
		{"store down", map[string]Pinger{"store": down}, "degraded", map[string]string{"store": "down"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			NewHealthHandler("league-api", "1.0.0", tt.checks).RegisterRoutes(r)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			require.Equal(t, http.StatusOK, w.Code)

			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, "league-api", resp.Service)
			assert.Equal(t, tt.wantChecks, resp.Checks)
		})
	}
}
