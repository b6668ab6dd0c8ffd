package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"

	"github.com/sahilhd/unify/internal/database"
	"github.com/sahilhd/unify/internal/models"
)

func setupRateLimitRouter(t *testing.T, user models.User, defaultLimit int) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr, err := miniredis.Run()
	if err != nil {
		panic(err)
	}
	database.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user", user)
		c.Next()
	})
	r.Use(RateLimitMiddleware(defaultLimit))
	r.GET("/v1/chat/completions", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r, mr
}

func TestRateLimitMiddleware(t *testing.T) {
	user := models.User{ID: "u1", RateLimitPerMinute: 60, IsActive: true}
	r, mr := setupRateLimitRouter(t, user, 60)
	defer mr.Close()

	// 60 requests pass, the 61st in the same window is rejected.
	for i := 0; i < 60; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/v1/chat/completions", nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "request %d should pass", i+1)
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/v1/chat/completions", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimitMiddlewarePerUserOverride(t *testing.T) {
	user := models.User{ID: "u2", RateLimitPerMinute: 2, IsActive: true}
	r, mr := setupRateLimitRouter(t, user, 60)
	defer mr.Close()

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/v1/chat/completions", nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/v1/chat/completions", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimitMiddlewareSkipsHealth(t *testing.T) {
	user := models.User{ID: "u3", RateLimitPerMinute: 1, IsActive: true}
	r, mr := setupRateLimitRouter(t, user, 1)
	defer mr.Close()

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/health", nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestBruteForceGuard(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mr, err := miniredis.Run()
	if err != nil {
		panic(err)
	}
	defer mr.Close()
	database.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})

	r := gin.New()
	r.Use(BruteForceGuard())
	r.POST("/auth/login", func(c *gin.Context) {
		c.Status(http.StatusUnauthorized)
	})

	attempt := func() int {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusUnauthorized, attempt())
		RecordLoginFailure("10.0.0.1")
	}

	// Locked out now.
	assert.Equal(t, http.StatusTooManyRequests, attempt())

	// A successful login clears the counter.
	ClearLoginFailures("10.0.0.1")
	assert.Equal(t, http.StatusUnauthorized, attempt())
}
