package billing

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sahilhd/unify/config"
	"github.com/sahilhd/unify/internal/api/v1/user"
	"github.com/sahilhd/unify/internal/models"
	"github.com/sahilhd/unify/internal/services"
	"github.com/sahilhd/unify/internal/utils"
)

// Usage godoc
// @Summary Usage totals
// @Description All-time and today request, token and cost totals
// @Tags billing
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} utils.Response{data=services.UsageStats}
// @Failure 401 {object} utils.Response
// @Router /billing/usage [get]
func Usage(c *gin.Context) {
	u, ok := user.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Authentication required"))
		return
	}

	stats, err := services.GetUsageStats(u.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to load usage stats"))
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("OK", stats))
}

// UsageOverTime godoc
// @Summary Per-day usage series
// @Description Daily requests, tokens and cost for the last N days, zero-filled
// @Tags billing
// @Produce  json
// @Security ApiKeyAuth
// @Param   days   query   int  false  "Number of days"  default(30)
// @Success 200 {object} utils.Response{data=[]services.DailyUsage}
// @Failure 401 {object} utils.Response
// @Router /billing/usage-over-time [get]
func UsageOverTime(c *gin.Context) {
	u, ok := user.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Authentication required"))
		return
	}

	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	series, err := services.GetUsageOverTime(u.ID, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to load usage series"))
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("OK", series))
}

// History godoc
// @Summary Billing ledger
// @Description Paginated ledger entries, newest first
// @Tags billing
// @Produce  json
// @Security ApiKeyAuth
// @Param   page   query   int  false  "Page"   default(1)
// @Param   limit  query   int  false  "Limit"  default(50)
// @Success 200 {object} utils.Response{data=[]models.BillingHistory}
// @Failure 401 {object} utils.Response
// @Router /billing/history [get]
func History(c *gin.Context) {
	u, ok := user.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Authentication required"))
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, total, err := services.FindBillingHistory(services.BillingFilter{
		UserID: u.ID,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to load billing history"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("OK", gin.H{
		"entries": entries,
		"total":   total,
		"page":    page,
		"limit":   limit,
	}))
}

type AddCreditsInput struct {
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Description string  `json:"description"`
}

// AddCredits godoc
// @Summary Grant credits directly
// @Tags billing
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   input     body   AddCreditsInput  true  "Add Credits Input"
// @Success 200 {object} utils.Response{data=models.BillingHistory}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Router /billing/add-credits [post]
func AddCredits(c *gin.Context) {
	u, ok := user.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Authentication required"))
		return
	}

	var input AddCreditsInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	description := input.Description
	if description == "" {
		description = "Credits added"
	}

	entry, err := services.AddCredits(u.ID, input.Amount, description, models.TransactionTypeCreditPurchase, "", "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to add credits"))
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Credits added", entry))
}

// CreditPackages godoc
// @Summary Purchasable credit packages
// @Tags billing
// @Produce  json
// @Success 200 {object} utils.Response{data=[]services.CreditPackage}
// @Router /billing/credit-packages [get]
func CreditPackages(c *gin.Context) {
	c.JSON(http.StatusOK, utils.NewSuccessResponse("OK", services.ListCreditPackages()))
}

type CreateIntentInput struct {
	Credits int `json:"credits" binding:"required"`
}

// CreatePaymentIntent godoc
// @Summary Open a card payment for a credit package
// @Tags billing
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   input     body   CreateIntentInput  true  "Create Intent Input"
// @Success 200 {object} utils.Response
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Router /billing/create-payment-intent [post]
func CreatePaymentIntent(c *gin.Context) {
	u, ok := user.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Authentication required"))
		return
	}

	var input CreateIntentInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to load configuration"))
		return
	}

	intent, err := services.CreatePaymentIntent(u.ID, input.Credits, cfg)
	if err != nil {
		if errors.Is(err, services.ErrUnknownCreditPackage) {
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to create payment intent"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Payment intent created", gin.H{
		"payment_intent_id": intent.ID,
		"client_secret":     intent.ClientSecret,
		"amount_cents":      intent.AmountCents,
		"currency":          intent.Currency,
	}))
}

type ConfirmPaymentInput struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
}

// ConfirmPayment godoc
// @Summary Confirm a settled card payment
// @Description Verifies the intent succeeded at the processor and credits the account; idempotent per intent
// @Tags billing
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   input     body   ConfirmPaymentInput  true  "Confirm Payment Input"
// @Success 200 {object} utils.Response{data=models.BillingHistory}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /billing/confirm-payment [post]
func ConfirmPayment(c *gin.Context) {
	u, ok := user.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Authentication required"))
		return
	}

	var input ConfirmPaymentInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to load configuration"))
		return
	}

	entry, err := services.ConfirmPayment(u.ID, input.PaymentIntentID, cfg)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPaymentAlreadyApplied):
			c.JSON(http.StatusConflict, utils.NewErrorResponse(http.StatusConflict, err.Error()))
		case errors.Is(err, services.ErrPaymentNotSucceeded):
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to confirm payment"))
		}
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Payment confirmed", entry))
}

// Webhook godoc
// @Summary Payment processor webhook
// @Description Signature-verified processor callbacks; only settled payments move credits
// @Tags billing
// @Accept  json
// @Produce  json
// @Success 200 {object} utils.Response
// @Failure 400 {object} utils.Response
// @Router /billing/webhook [post]
func Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Failed to read payload"))
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to load configuration"))
		return
	}

	if err := services.HandlePaymentWebhook(payload, c.GetHeader("Stripe-Signature"), cfg); err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("OK", nil))
}
