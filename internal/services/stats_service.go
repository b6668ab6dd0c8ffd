package services

import (
	"github.com/sahilhd/unify/internal/database"
	"github.com/sahilhd/unify/internal/models"
)

// PlatformStats is the admin dashboard summary.
type PlatformStats struct {
	TotalUsers    int64   `json:"total_users"`
	ActiveUsers   int64   `json:"active_users"`
	TotalRequests int64   `json:"total_requests"`
	TotalTokens   int64   `json:"total_tokens"`
	TotalRevenue  float64 `json:"total_revenue"`
}

func GetPlatformStats() (*PlatformStats, error) {
	var stats PlatformStats

	if err := database.DB.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := database.DB.Model(&models.User{}).Where("is_active = ?", true).Count(&stats.ActiveUsers).Error; err != nil {
		return nil, err
	}

	var usage struct {
		Requests int64
		Tokens   int64
	}
	err := database.DB.Model(&models.UsageLog{}).
		Select("COUNT(*) as requests, COALESCE(SUM(tokens_used), 0) as tokens").
		Scan(&usage).Error
	if err != nil {
		return nil, err
	}
	stats.TotalRequests = usage.Requests
	stats.TotalTokens = usage.Tokens

	err = database.DB.Model(&models.BillingHistory{}).
		Where("transaction_type = ?", models.TransactionTypeCreditPurchase).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&stats.TotalRevenue).Error
	if err != nil {
		return nil, err
	}

	return &stats, nil
}
