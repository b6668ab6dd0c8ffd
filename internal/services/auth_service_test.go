package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahilhd/unify/config"
	"github.com/sahilhd/unify/internal/database"
	"github.com/sahilhd/unify/internal/models"
)

func authTestConfig() *config.Config {
	return &config.Config{
		MinPasswordLength:  8,
		RequireComplexity:  true,
		DefaultCredits:     0.10,
		RateLimitPerMinute: 60,
		DailyQuota:         10000,
	}
}

func TestGenerateAPIKey(t *testing.T) {
	key, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "unillm_"))
	assert.Len(t, key, len("unillm_")+32)

	for _, r := range strings.TrimPrefix(key, "unillm_") {
		assert.True(t,
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			"API key body must be alphanumeric")
	}

	other, err := GenerateAPIKey()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestValidatePassword(t *testing.T) {
	cfg := authTestConfig()

	assert.Error(t, ValidatePassword("Sh0rt!", cfg))
	assert.Error(t, ValidatePassword("alllowercase1!", cfg))
	assert.Error(t, ValidatePassword("ALLUPPERCASE1!", cfg))
	assert.Error(t, ValidatePassword("NoDigitsHere!", cfg))
	assert.Error(t, ValidatePassword("NoSpecial123", cfg))
	assert.NoError(t, ValidatePassword("GoodPass1!", cfg))

	cfg.RequireComplexity = false
	assert.NoError(t, ValidatePassword("alllowercase", cfg))
}

func TestRegisterUser(t *testing.T) {
	setupTestDB(t)
	mr := setupTestRedis(t)
	defer mr.Close()

	cfg := authTestConfig()

	user, err := RegisterUser("first@example.com", "GoodPass1!", cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.True(t, strings.HasPrefix(user.APIKey, "unillm_"))
	assert.InDelta(t, 0.10, user.Credits, 1e-9)
	assert.True(t, user.IsAdmin, "first account becomes admin")
	assert.NotEqual(t, "GoodPass1!", user.PasswordHash)

	second, err := RegisterUser("second@example.com", "GoodPass1!", cfg)
	require.NoError(t, err)
	assert.False(t, second.IsAdmin)

	_, err = RegisterUser("first@example.com", "GoodPass1!", cfg)
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestLoginUser(t *testing.T) {
	setupTestDB(t)
	mr := setupTestRedis(t)
	defer mr.Close()

	t.Setenv("JWT_SECRET", "test-secret")

	cfg := authTestConfig()
	_, err := RegisterUser("login@example.com", "GoodPass1!", cfg)
	require.NoError(t, err)

	token, user, err := LoginUser("login@example.com", "GoodPass1!")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "login@example.com", user.Email)

	_, _, err = LoginUser("login@example.com", "WrongPass1!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = LoginUser("nobody@example.com", "GoodPass1!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginUserDisabledAccount(t *testing.T) {
	setupTestDB(t)
	mr := setupTestRedis(t)
	defer mr.Close()

	t.Setenv("JWT_SECRET", "test-secret")

	cfg := authTestConfig()
	user, err := RegisterUser("off@example.com", "GoodPass1!", cfg)
	require.NoError(t, err)
	require.NoError(t, SetUserActive(user.ID, false))

	_, _, err = LoginUser("off@example.com", "GoodPass1!")
	assert.ErrorContains(t, err, "disabled")
}

func TestRotateAPIKey(t *testing.T) {
	setupTestDB(t)
	mr := setupTestRedis(t)
	defer mr.Close()

	cfg := authTestConfig()
	user, err := RegisterUser("rotate@example.com", "GoodPass1!", cfg)
	require.NoError(t, err)

	newKey, err := RotateAPIKey(user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, user.APIKey, newKey)

	_, err = FindUserByAPIKey(user.APIKey)
	assert.ErrorIs(t, err, ErrUserNotFound, "old key stops working")

	found, err := FindUserByAPIKey(newKey)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = RotateAPIKey("missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestChangePassword(t *testing.T) {
	setupTestDB(t)
	mr := setupTestRedis(t)
	defer mr.Close()

	t.Setenv("JWT_SECRET", "test-secret")

	cfg := authTestConfig()
	user, err := RegisterUser("pw@example.com", "GoodPass1!", cfg)
	require.NoError(t, err)

	err = ChangePassword(user.ID, "WrongPass1!", "NewGoodPass1!", cfg)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, ChangePassword(user.ID, "GoodPass1!", "NewGoodPass1!", cfg))

	_, _, err = LoginUser("pw@example.com", "NewGoodPass1!")
	assert.NoError(t, err)
}

func TestUpdateUserOptimisticLock(t *testing.T) {
	setupTestDB(t)
	mr := setupTestRedis(t)
	defer mr.Close()

	cfg := authTestConfig()
	user, err := RegisterUser("lock@example.com", "GoodPass1!", cfg)
	require.NoError(t, err)

	updated, err := UpdateUser(user.ID, map[string]interface{}{"daily_quota": 500})
	require.NoError(t, err)
	assert.Equal(t, 500, updated.DailyQuota)
	assert.Equal(t, user.Version+1, updated.Version)

	// A writer holding the stale version must be rejected.
	result := database.DB.Model(&models.User{}).
		Where("id = ? AND version = ?", user.ID, user.Version).
		Update("daily_quota", 999)
	require.NoError(t, result.Error)
	assert.Equal(t, int64(0), result.RowsAffected)
}
