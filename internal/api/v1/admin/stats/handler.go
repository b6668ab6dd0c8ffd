package stats

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sahilhd/unify/config"
	"github.com/sahilhd/unify/internal/services"
	"github.com/sahilhd/unify/internal/utils"
)

// Overview godoc
// @Summary Platform summary
// @Description Total and active users, total requests and revenue
// @Tags admin
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} utils.Response{data=services.PlatformStats}
// @Failure 403 {object} utils.Response
// @Router /admin/stats [get]
func Overview(c *gin.Context) {
	platformStats, err := services.GetPlatformStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to load stats"))
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("OK", platformStats))
}

// ExportBilling godoc
// @Summary Export the billing ledger as CSV
// @Tags admin
// @Produce  text/csv
// @Security ApiKeyAuth
// @Success 200 {string} string "CSV content"
// @Failure 403 {object} utils.Response
// @Router /admin/billing/export [get]
func ExportBilling(c *gin.Context) {
	entries, _, err := services.FindBillingHistory(services.BillingFilter{
		Page:  1,
		Limit: 100000,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to load billing history"))
		return
	}

	csvData, err := services.GenerateBillingCSV(entries)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to generate CSV"))
		return
	}

	filename := fmt.Sprintf("billing_export_%s.csv", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "text/csv", csvData)
}

type RefundInput struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
}

// Refund godoc
// @Summary Refund a credit purchase
// @Description Processor refund plus credit clawback and a negative ledger row
// @Tags admin
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   input     body   RefundInput  true  "Refund Input"
// @Success 200 {object} utils.Response{data=models.BillingHistory}
// @Failure 400 {object} utils.Response
// @Failure 403 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /admin/billing/refund [post]
func Refund(c *gin.Context) {
	var input RefundInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to load configuration"))
		return
	}

	entry, err := services.RefundPayment(input.PaymentIntentID, cfg)
	if err != nil {
		if errors.Is(err, services.ErrPaymentAlreadyApplied) {
			c.JSON(http.StatusConflict, utils.NewErrorResponse(http.StatusConflict, "Payment has already been refunded"))
			return
		}
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Refund issued", entry))
}
