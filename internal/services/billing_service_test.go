package services

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sahilhd/unify/config"
	"github.com/sahilhd/unify/internal/database"
	"github.com/sahilhd/unify/internal/models"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.Migrator().DropTable(&models.User{}, &models.UsageLog{}, &models.BillingHistory{})
	db.AutoMigrate(&models.User{}, &models.UsageLog{}, &models.BillingHistory{})

	database.DB = db
}

func setupTestRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		panic(err)
	}

	database.RedisClient = redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	return mr
}

func seedUser(t *testing.T, credits float64) *models.User {
	t.Helper()
	apiKey, err := GenerateAPIKey()
	require.NoError(t, err)

	user := &models.User{
		Email:              "user@example.com",
		PasswordHash:       "x",
		APIKey:             apiKey,
		Credits:            credits,
		RateLimitPerMinute: 60,
		DailyQuota:         10000,
		IsActive:           true,
	}
	require.NoError(t, database.DB.Create(user).Error)
	return user
}

func TestCalculateCost(t *testing.T) {
	// 1000 tokens of gpt-3.5-turbo: 0.002 * 1.2
	assert.InDelta(t, 0.0024, CalculateCost("openai", "gpt-3.5-turbo", 1000), 1e-9)

	// Dated snapshot ids resolve to their family rate by prefix.
	assert.InDelta(t, 0.075*1.2, CalculateCost("anthropic", "claude-3-opus-20240229", 1000), 1e-9)
	assert.InDelta(t, 0.015*1.2, CalculateCost("anthropic", "claude-3-5-sonnet-20241022", 1000), 1e-9)

	// command-light must not be priced at the shorter "command" rate.
	assert.InDelta(t, 0.003*1.2, CalculateCost("cohere", "command-light", 1000), 1e-9)

	// Unknown models fall back to the default rate.
	assert.InDelta(t, 0.01*1.2, CalculateCost("openai", "gpt-99", 1000), 1e-9)

	assert.InDelta(t, 0.0012, CalculateCost("openai", "gpt-3.5-turbo", 500), 1e-9)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 1, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 25, EstimateTokens(string(make([]byte, 100))))
}

func TestDebitForUsage(t *testing.T) {
	setupTestDB(t)
	mr := setupTestRedis(t)
	defer mr.Close()

	user := seedUser(t, 1.0)

	log := &models.UsageLog{
		Model:      "gpt-4",
		Provider:   "openai",
		TokensUsed: 100,
		Cost:       0.25,
		Success:    true,
	}
	require.NoError(t, DebitForUsage(user.ID, log))

	var updated models.User
	database.DB.Where("id = ?", user.ID).First(&updated)
	assert.InDelta(t, 0.75, updated.Credits, 1e-9)

	var count int64
	database.DB.Model(&models.UsageLog{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestDebitForUsageInsufficientCredits(t *testing.T) {
	setupTestDB(t)
	mr := setupTestRedis(t)
	defer mr.Close()

	user := seedUser(t, 0.10)

	log := &models.UsageLog{
		Model:      "gpt-4",
		Provider:   "openai",
		TokensUsed: 100,
		Cost:       0.25,
		Success:    true,
	}
	err := DebitForUsage(user.ID, log)
	assert.ErrorIs(t, err, ErrInsufficientCredits)

	// Balance untouched, no usage row committed.
	var updated models.User
	database.DB.Where("id = ?", user.ID).First(&updated)
	assert.InDelta(t, 0.10, updated.Credits, 1e-9)

	var count int64
	database.DB.Model(&models.UsageLog{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestDebitForUsageCompetingDebits(t *testing.T) {
	setupTestDB(t)
	mr := setupTestRedis(t)
	defer mr.Close()

	// Balance covers exactly one of two identical debits; the guard on the
	// update must stop the second one.
	user := seedUser(t, 0.30)

	charge := func() error {
		return DebitForUsage(user.ID, &models.UsageLog{
			Model:      "gpt-4",
			Provider:   "openai",
			TokensUsed: 100,
			Cost:       0.25,
			Success:    true,
		})
	}

	require.NoError(t, charge())
	assert.ErrorIs(t, charge(), ErrInsufficientCredits)

	var updated models.User
	database.DB.Where("id = ?", user.ID).First(&updated)
	assert.GreaterOrEqual(t, updated.Credits, 0.0, "balance must never go negative")
	assert.InDelta(t, 0.05, updated.Credits, 1e-9)

	var count int64
	database.DB.Model(&models.UsageLog{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(1), count, "only the winning debit may log usage")
}

func TestAddCreditsWritesLedgerRow(t *testing.T) {
	setupTestDB(t)
	mr := setupTestRedis(t)
	defer mr.Close()

	user := seedUser(t, 0.0)

	entry, err := AddCredits(user.ID, 100, "Purchased 100 credits", models.TransactionTypeCreditPurchase, "pi_123", "")
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.NotEmpty(t, entry.Hash)

	var updated models.User
	database.DB.Where("id = ?", user.ID).First(&updated)
	assert.InDelta(t, 100.0, updated.Credits, 1e-9)

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, entry.Hash, entry.GenerateHash(cfg.LedgerHashSecret), "ledger hash must verify")

	_, err = AddCredits("missing-user", 10, "x", models.TransactionTypeCreditPurchase, "", "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetUsageStats(t *testing.T) {
	setupTestDB(t)
	mr := setupTestRedis(t)
	defer mr.Close()

	user := seedUser(t, 10.0)

	for i := 0; i < 3; i++ {
		require.NoError(t, DebitForUsage(user.ID, &models.UsageLog{
			Model:      "gpt-4",
			Provider:   "openai",
			TokensUsed: 100,
			Cost:       0.5,
			Success:    true,
		}))
	}

	stats, err := GetUsageStats(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalRequests)
	assert.Equal(t, int64(300), stats.TotalTokens)
	assert.InDelta(t, 1.5, stats.TotalCost, 1e-9)
}

func TestGetUsageOverTimeZeroFills(t *testing.T) {
	setupTestDB(t)
	mr := setupTestRedis(t)
	defer mr.Close()

	user := seedUser(t, 10.0)
	require.NoError(t, DebitForUsage(user.ID, &models.UsageLog{
		Model:      "gpt-4",
		Provider:   "openai",
		TokensUsed: 50,
		Cost:       0.1,
		Success:    true,
	}))

	series, err := GetUsageOverTime(user.ID, 7)
	require.NoError(t, err)
	require.Len(t, series, 7)

	var active, empty int
	for _, day := range series {
		if day.Requests > 0 {
			active++
		} else {
			empty++
		}
	}
	assert.Equal(t, 1, active)
	assert.Equal(t, 6, empty)
}

func TestGenerateBillingCSV(t *testing.T) {
	entries := []models.BillingHistory{
		{
			ID:              "e1",
			UserID:          "u1",
			Amount:          100,
			Description:     "Purchased 100 credits",
			TransactionType: models.TransactionTypeCreditPurchase,
		},
	}
	out, err := GenerateBillingCSV(entries)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Purchased 100 credits")
	assert.Contains(t, string(out), "credit_purchase")
}

func TestRecordFailedUsagePersistsFailure(t *testing.T) {
	setupTestDB(t)
	mr := setupTestRedis(t)
	defer mr.Close()

	user := seedUser(t, 1.0)

	require.NoError(t, RecordFailedUsage(user.ID, &models.UsageLog{
		Model:        "gpt-4",
		Provider:     "openai",
		ErrorMessage: "upstream timeout",
	}))

	// The row must read back as a failure, not pick up a success default.
	var row models.UsageLog
	require.NoError(t, database.DB.Where("user_id = ?", user.ID).First(&row).Error)
	assert.False(t, row.Success)
	assert.Zero(t, row.Cost)
	assert.Equal(t, "upstream timeout", row.ErrorMessage)
}
