package auth_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sahilhd/unify/internal/api/v1/auth"
	"github.com/sahilhd/unify/internal/database"
	"github.com/sahilhd/unify/internal/models"
	"github.com/sahilhd/unify/internal/utils"
)

func setupTestEnv(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", "test-secret")

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}
	db.Migrator().DropTable(&models.User{}, &models.UsageLog{}, &models.BillingHistory{})
	db.AutoMigrate(&models.User{}, &models.UsageLog{}, &models.BillingHistory{})
	database.DB = db

	mr, err := miniredis.Run()
	if err != nil {
		panic(err)
	}
	database.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr
}

func setupAuthRouter() *gin.Engine {
	r := gin.New()
	auth.RegisterRoutes(r.Group("/"))
	return r
}

func postJSON(r *gin.Engine, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterAndLogin(t *testing.T) {
	mr := setupTestEnv(t)
	defer mr.Close()
	r := setupAuthRouter()

	w := postJSON(r, "/auth/register", gin.H{
		"email":    "new@example.com",
		"password": "GoodPass1!",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Status int `json:"status"`
		Data   struct {
			Email   string  `json:"email"`
			APIKey  string  `json:"api_key"`
			Token   string  `json:"token"`
			Credits float64 `json:"credits"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "new@example.com", resp.Data.Email)
	assert.NotEmpty(t, resp.Data.APIKey)
	assert.NotEmpty(t, resp.Data.Token)

	// Weak passwords are rejected.
	w = postJSON(r, "/auth/register", gin.H{
		"email":    "weak@example.com",
		"password": "short",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Duplicate email conflicts.
	w = postJSON(r, "/auth/register", gin.H{
		"email":    "new@example.com",
		"password": "GoodPass1!",
	}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = postJSON(r, "/auth/login", gin.H{
		"email":    "new@example.com",
		"password": "GoodPass1!",
	}, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = postJSON(r, "/auth/login", gin.H{
		"email":    "new@example.com",
		"password": "WrongPass1!",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeAcceptsBothCredentials(t *testing.T) {
	mr := setupTestEnv(t)
	defer mr.Close()
	r := setupAuthRouter()

	w := postJSON(r, "/auth/register", gin.H{
		"email":    "dual@example.com",
		"password": "GoodPass1!",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data struct {
			APIKey string `json:"api_key"`
			Token  string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	get := func(authHeader string) *httptest.ResponseRecorder {
		req, _ := http.NewRequest(http.MethodGet, "/auth/me", nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, get("Bearer "+resp.Data.Token).Code)
	assert.Equal(t, http.StatusOK, get("Bearer "+resp.Data.APIKey).Code)
	assert.Equal(t, http.StatusUnauthorized, get("Bearer bogus").Code)
	assert.Equal(t, http.StatusUnauthorized, get("").Code)
}

func TestLogoutDenylistsToken(t *testing.T) {
	mr := setupTestEnv(t)
	defer mr.Close()
	r := setupAuthRouter()

	w := postJSON(r, "/auth/register", gin.H{
		"email":    "bye@example.com",
		"password": "GoodPass1!",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, utils.LooksLikeJWT(resp.Data.Token))

	headers := map[string]string{"Authorization": "Bearer " + resp.Data.Token}
	w = postJSON(r, "/auth/logout", nil, headers)
	assert.Equal(t, http.StatusOK, w.Code)

	// The revoked token no longer authenticates.
	req, _ := http.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Data.Token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
