package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/sahilhd/unify/config"
	"github.com/sahilhd/unify/internal/database"
	"github.com/sahilhd/unify/internal/models"
	"github.com/sahilhd/unify/internal/providers"
	"github.com/sahilhd/unify/internal/registry"
)

var ErrModelNotSupported = errors.New("model not supported")
var ErrNoCredits = errors.New("insufficient credits")

// ChatResult is the metered outcome of one routed request.
type ChatResult struct {
	Response         *providers.ChatResponse
	TokensUsed       int
	Cost             float64
	ResponseTimeMs   int
	RemainingCredits float64
}

// adapterFor is swapped in tests to avoid real upstream dispatch.
var adapterFor = providers.ForProvider

// RouteChat runs the full gateway pipeline for one request: resolve the model
// to a provider, gate on the caller's balance, dispatch upstream, meter the
// response, then debit and log in one transaction. Every attempt leaves
// exactly one usage row, charged or not.
func RouteChat(ctx context.Context, user *models.User, req *providers.ChatRequest, cfg *config.Config) (*ChatResult, error) {
	canonical := registry.Default.ResolveAlias(req.Model)
	provider, ok := registry.Default.Provider(canonical)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrModelNotSupported, req.Model)
		if logErr := RecordFailedUsage(user.ID, &models.UsageLog{
			Model:        req.Model,
			Provider:     "unknown",
			ErrorMessage: err.Error(),
		}); logErr != nil {
			return nil, logErr
		}
		return nil, err
	}
	req.Model = canonical

	// Pre-flight gate on the chars/4 estimate. The authoritative check is the
	// conditional debit after dispatch.
	var promptChars int
	for _, msg := range req.Messages {
		promptChars += len(msg.Content)
	}
	estTokens := promptChars / 4
	if estTokens < 1 {
		estTokens = 1
	}
	estimated := CalculateCost(provider, canonical, estTokens)
	if user.Credits <= 0 || user.Credits < estimated {
		return nil, ErrNoCredits
	}

	adapter, err := adapterFor(provider, cfg.ProviderKey(provider))
	if err != nil {
		return nil, err
	}

	params, _ := json.Marshal(map[string]interface{}{
		"model":       canonical,
		"messages":    len(req.Messages),
		"temperature": req.Temperature,
		"max_tokens":  req.MaxTokens,
	})

	start := time.Now()
	resp, err := adapter.Chat(ctx, req)
	elapsed := int(time.Since(start).Milliseconds())

	if err != nil {
		logErr := RecordFailedUsage(user.ID, &models.UsageLog{
			Model:          canonical,
			Provider:       provider,
			ResponseTimeMs: elapsed,
			ErrorMessage:   err.Error(),
			RequestParams:  datatypes.JSON(params),
		})
		if logErr != nil {
			return nil, logErr
		}
		return nil, err
	}

	tokens := resp.Usage.TotalTokens
	if tokens == 0 {
		// Provider did not report usage; fall back to the estimate.
		tokens = estTokens + EstimateTokens(resp.Content)
	}

	cost := CalculateCost(provider, canonical, tokens)

	usageLog := &models.UsageLog{
		Model:          canonical,
		Provider:       provider,
		TokensUsed:     tokens,
		Cost:           cost,
		ResponseTimeMs: elapsed,
		Success:        true,
		RequestParams:  datatypes.JSON(params),
	}

	if err := DebitForUsage(user.ID, usageLog); err != nil {
		if errors.Is(err, ErrInsufficientCredits) {
			// The upstream call went through but the balance no longer
			// covers it. The attempt is still audited, uncharged.
			_ = RecordFailedUsage(user.ID, &models.UsageLog{
				Model:          canonical,
				Provider:       provider,
				TokensUsed:     tokens,
				ResponseTimeMs: elapsed,
				ErrorMessage:   "insufficient credits",
				RequestParams:  datatypes.JSON(params),
			})
			return nil, ErrNoCredits
		}
		return nil, err
	}

	invalidateUserCache(user.ID)

	var fresh models.User
	remaining := user.Credits - cost
	if err := database.DB.Where("id = ?", user.ID).First(&fresh).Error; err == nil {
		remaining = fresh.Credits
	}

	return &ChatResult{
		Response:         resp,
		TokensUsed:       tokens,
		Cost:             cost,
		ResponseTimeMs:   elapsed,
		RemainingCredits: remaining,
	}, nil
}
