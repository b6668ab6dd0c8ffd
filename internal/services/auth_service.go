package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/sahilhd/unify/config"
	"github.com/sahilhd/unify/internal/database"
	"github.com/sahilhd/unify/internal/models"
	"github.com/sahilhd/unify/internal/utils"
)

var ErrUserAlreadyExists = errors.New("user with this email already exists")
var ErrInvalidCredentials = errors.New("invalid email or password")

const apiKeyPrefix = "unillm_"
const apiKeyLength = 32
const apiKeyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateAPIKey produces a fresh gateway credential.
func GenerateAPIKey() (string, error) {
	out := make([]byte, apiKeyLength)
	max := big.NewInt(int64(len(apiKeyAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = apiKeyAlphabet[n.Int64()]
	}
	return apiKeyPrefix + string(out), nil
}

// ValidatePassword enforces the configured password policy.
func ValidatePassword(password string, cfg *config.Config) error {
	if len(password) < cfg.MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", cfg.MinPasswordLength)
	}
	if !cfg.RequireComplexity {
		return nil
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(`!@#$%^&*(),.?":{}|<>`, r):
			hasSpecial = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit || !hasSpecial {
		return errors.New("password must contain uppercase, lowercase, numeric and special characters")
	}
	return nil
}

// RegisterUser creates an account with a hashed password, a fresh API key and
// the configured starting credit balance. The first account becomes an admin.
func RegisterUser(email, password string, cfg *config.Config) (*models.User, error) {
	if err := ValidatePassword(password, cfg); err != nil {
		return nil, err
	}

	var existing models.User
	result := database.DB.Where("email = ?", email).First(&existing)
	if result.Error == nil {
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	apiKey, err := GenerateAPIKey()
	if err != nil {
		return nil, err
	}

	var userCount int64
	database.DB.Model(&models.User{}).Count(&userCount)

	user := &models.User{
		Email:              email,
		PasswordHash:       string(hashedPassword),
		APIKey:             apiKey,
		Credits:            cfg.DefaultCredits,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		DailyQuota:         cfg.DailyQuota,
		IsActive:           true,
		IsAdmin:            userCount == 0,
	}

	if err := database.DB.Create(user).Error; err != nil {
		return nil, err
	}

	return user, nil
}

// LoginUser verifies credentials and issues a JWT.
func LoginUser(email, password string) (string, *models.User, error) {
	var user models.User
	if err := database.DB.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return "", nil, errors.New("account is disabled")
	}

	token, err := utils.GenerateToken(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		return "", nil, err
	}

	return token, &user, nil
}

// RotateAPIKey replaces a user's API key and returns the new one. The old key
// stops working immediately.
func RotateAPIKey(userID string) (string, error) {
	apiKey, err := GenerateAPIKey()
	if err != nil {
		return "", err
	}

	result := database.DB.Model(&models.User{}).Where("id = ?", userID).Update("api_key", apiKey)
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected == 0 {
		return "", ErrUserNotFound
	}

	invalidateUserCache(userID)
	return apiKey, nil
}

// ChangePassword verifies the current password before setting a new one.
func ChangePassword(userID, currentPassword, newPassword string, cfg *config.Config) error {
	var user models.User
	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	if err := ValidatePassword(newPassword, cfg); err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if err := database.DB.Model(&user).Update("password_hash", string(hashedPassword)).Error; err != nil {
		return err
	}

	invalidateUserCache(userID)
	return nil
}
