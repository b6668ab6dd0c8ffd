package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := GenerateToken("user-1", "a@b.com", true)
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", claims["sub"])
	assert.Equal(t, "user-1", claims["user_id"])
	assert.Equal(t, true, claims["is_admin"])

	_, err = ValidateToken(token + "x")
	assert.Error(t, err)
}

func TestLooksLikeJWT(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := GenerateToken("user-1", "a@b.com", false)
	require.NoError(t, err)
	assert.True(t, LooksLikeJWT(token))

	assert.False(t, LooksLikeJWT("unillm_abcdefghijklmnopqrstuvwxyz123456"))
	assert.False(t, LooksLikeJWT("a.b"))
	assert.False(t, LooksLikeJWT("not a token"))
}

func TestExtractToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newCtx := func(header string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request, _ = http.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			c.Request.Header.Set("Authorization", header)
		}
		return c
	}

	token, err := ExtractToken(newCtx("Bearer abc123"))
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	_, err = ExtractToken(newCtx(""))
	assert.Error(t, err)

	_, err = ExtractToken(newCtx("Basic abc123"))
	assert.Error(t, err)
}
