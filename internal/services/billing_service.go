package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/sahilhd/unify/config"
	"github.com/sahilhd/unify/internal/database"
	"github.com/sahilhd/unify/internal/models"
)

var ErrInsufficientCredits = errors.New("insufficient credits")

const costMarkup = 1.2
const defaultCostPer1K = 0.01

// providerCosts is the base price per 1K tokens before markup. Keys are model
// prefixes so dated snapshot ids resolve to their family rate.
var providerCosts = map[string]map[string]float64{
	"openai": {
		"gpt-3.5-turbo": 0.002,
		"gpt-4-turbo":   0.03,
		"gpt-4":         0.03,
	},
	"anthropic": {
		"claude-3-opus":   0.075,
		"claude-3-sonnet": 0.015,
		"claude-3-5":      0.015,
		"claude-3-haiku":  0.0025,
	},
	"gemini": {
		"gemini-pro-vision": 0.001,
		"gemini-pro":        0.001,
	},
	"mistral": {
		"mistral-small":  0.007,
		"mistral-medium": 0.014,
		"mistral-large":  0.056,
	},
	"cohere": {
		"command-light": 0.003,
		"command":       0.015,
	},
}

// CalculateCost prices a request: per-1K base rate with a 20% markup. Exact
// model match wins, then the longest matching prefix, then the default rate.
func CalculateCost(provider, model string, tokens int) float64 {
	base := defaultCostPer1K
	if rates, ok := providerCosts[provider]; ok {
		if rate, ok := rates[model]; ok {
			base = rate
		} else {
			bestLen := 0
			for prefix, rate := range rates {
				if strings.HasPrefix(model, prefix) && len(prefix) > bestLen {
					base = rate
					bestLen = len(prefix)
				}
			}
		}
	}
	return float64(tokens) / 1000 * base * costMarkup
}

// EstimateTokens approximates token count as one token per four characters.
// Used only when the provider did not report usage.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}

// DebitForUsage atomically charges a user and records the usage row. The
// debit is conditional on the balance covering the cost, so two concurrent
// requests can never drive the balance negative, and the usage row commits
// with the debit or not at all.
func DebitForUsage(userID string, log *models.UsageLog) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		if log.Cost > 0 {
			result := tx.Model(&models.User{}).
				Where("id = ? AND credits >= ?", userID, log.Cost).
				Update("credits", gorm.Expr("credits - ?", log.Cost))
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return ErrInsufficientCredits
			}
		}
		log.UserID = userID
		return tx.Create(log).Error
	})
}

// RecordFailedUsage appends an audit row for an attempt that was never
// charged. Failures still count toward the usage trail.
func RecordFailedUsage(userID string, log *models.UsageLog) error {
	log.UserID = userID
	log.Success = false
	log.Cost = 0
	return database.DB.Create(log).Error
}

// AddCredits grants credits and writes the matching ledger row in one
// transaction. Negative amounts claw credits back (refunds).
func AddCredits(userID string, amount float64, description string, txType models.TransactionType, stripeIntentID, stripeRefundID string) (*models.BillingHistory, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	entry := &models.BillingHistory{
		UserID:                userID,
		Amount:                amount,
		Description:           description,
		TransactionType:       txType,
		StripePaymentIntentID: stripeIntentID,
		StripeRefundID:        stripeRefundID,
		CreatedAt:             time.Now(),
	}
	entry.Hash = entry.GenerateHash(cfg.LedgerHashSecret)

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("credits", gorm.Expr("credits + ?", amount))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}

	invalidateUserCache(userID)
	return entry, nil
}

// UsageStats summarizes a user's consumption.
type UsageStats struct {
	TotalRequests int64   `json:"total_requests"`
	TotalTokens   int64   `json:"total_tokens"`
	TotalCost     float64 `json:"total_cost"`
	TodayRequests int64   `json:"today_requests"`
	TodayTokens   int64   `json:"today_tokens"`
	TodayCost     float64 `json:"today_cost"`
}

type usageAggregate struct {
	Requests int64
	Tokens   int64
	Cost     float64
}

func aggregateUsage(userID string, since *time.Time) (usageAggregate, error) {
	var agg usageAggregate
	query := database.DB.Model(&models.UsageLog{}).
		Select("COUNT(*) as requests, COALESCE(SUM(tokens_used), 0) as tokens, COALESCE(SUM(cost), 0) as cost").
		Where("user_id = ?", userID)
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}
	err := query.Scan(&agg).Error
	return agg, err
}

func GetUsageStats(userID string) (*UsageStats, error) {
	total, err := aggregateUsage(userID, nil)
	if err != nil {
		return nil, err
	}

	midnight := time.Now().Truncate(24 * time.Hour)
	today, err := aggregateUsage(userID, &midnight)
	if err != nil {
		return nil, err
	}

	return &UsageStats{
		TotalRequests: total.Requests,
		TotalTokens:   total.Tokens,
		TotalCost:     total.Cost,
		TodayRequests: today.Requests,
		TodayTokens:   today.Tokens,
		TodayCost:     today.Cost,
	}, nil
}

// DailyUsage is one day in the usage-over-time series.
type DailyUsage struct {
	Date     string  `json:"date"`
	Requests int64   `json:"requests"`
	Tokens   int64   `json:"tokens"`
	Cost     float64 `json:"cost"`
}

// GetUsageOverTime returns a per-day series for the last N days, with days
// that saw no traffic zero-filled.
func GetUsageOverTime(userID string, days int) ([]DailyUsage, error) {
	if days <= 0 {
		days = 30
	}

	start := time.Now().AddDate(0, 0, -(days - 1)).Truncate(24 * time.Hour)

	// DATE() comes back as a string on sqlite and as a date on postgres;
	// scanning into a string handles both.
	var rows []struct {
		Day      string
		Requests int64
		Tokens   int64
		Cost     float64
	}
	err := database.DB.Model(&models.UsageLog{}).
		Select("DATE(created_at) as day, COUNT(*) as requests, COALESCE(SUM(tokens_used), 0) as tokens, COALESCE(SUM(cost), 0) as cost").
		Where("user_id = ? AND created_at >= ?", userID, start).
		Group("DATE(created_at)").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]DailyUsage, len(rows))
	for _, r := range rows {
		key := r.Day
		if len(key) > 10 {
			key = key[:10]
		}
		byDate[key] = DailyUsage{Date: key, Requests: r.Requests, Tokens: r.Tokens, Cost: r.Cost}
	}

	series := make([]DailyUsage, 0, days)
	for i := 0; i < days; i++ {
		key := start.AddDate(0, 0, i).Format("2006-01-02")
		if day, ok := byDate[key]; ok {
			series = append(series, day)
		} else {
			series = append(series, DailyUsage{Date: key})
		}
	}
	return series, nil
}

// BillingFilter defines criteria for filtering ledger entries.
type BillingFilter struct {
	UserID    string
	Type      *models.TransactionType
	StartTime *time.Time
	EndTime   *time.Time
	Page      int
	Limit     int
}

// FindBillingHistory retrieves a paginated ledger slice, newest first.
func FindBillingHistory(filter BillingFilter) ([]models.BillingHistory, int64, error) {
	var entries []models.BillingHistory
	var total int64

	query := database.DB.Model(&models.BillingHistory{})

	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Type != nil {
		query = query.Where("transaction_type = ?", *filter.Type)
	}
	if filter.StartTime != nil {
		query = query.Where("created_at >= ?", *filter.StartTime)
	}
	if filter.EndTime != nil {
		query = query.Where("created_at <= ?", *filter.EndTime)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	offset := (filter.Page - 1) * filter.Limit
	if err := query.Order("created_at desc").Limit(filter.Limit).Offset(offset).Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// GenerateBillingCSV renders ledger entries as a CSV export.
func GenerateBillingCSV(entries []models.BillingHistory) ([]byte, error) {
	b := &bytes.Buffer{}
	w := csv.NewWriter(b)

	header := []string{
		"ID", "Time", "User ID", "Type", "Amount",
		"Description", "Payment Intent", "Refund", "Hash",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, e := range entries {
		record := []string{
			e.ID,
			e.CreatedAt.Format(time.RFC3339Nano),
			e.UserID,
			string(e.TransactionType),
			fmt.Sprintf("%.4f", e.Amount),
			e.Description,
			e.StripePaymentIntentID,
			e.StripeRefundID,
			e.Hash,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}
