package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahilhd/unify/config"
	"github.com/sahilhd/unify/internal/api"
)

// NewRouter must assemble without panicking (Gin panics on duplicate
// method+path registrations) and keep the public surface reachable
// without credentials.
func TestNewRouterAssembles(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		CORSOrigins:        []string{"http://localhost:3000"},
		RateLimitPerMinute: 60,
	}

	var router *gin.Engine
	require.NotPanics(t, func() { router = api.NewRouter(cfg) })

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, get("/health").Code)

	// Package prices are public; the rest of the billing surface is not.
	assert.Equal(t, http.StatusOK, get("/billing/credit-packages").Code)
	assert.Equal(t, http.StatusUnauthorized, get("/billing/usage").Code)
	assert.Equal(t, http.StatusUnauthorized, get("/v1/models").Code)
	assert.Equal(t, http.StatusUnauthorized, get("/admin/stats").Code)
}
