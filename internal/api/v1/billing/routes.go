package billing

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the authenticated billing surface. The webhook and
// the credit-package listing are registered on the public group instead: the
// processor cannot present user credentials, and package prices are shown
// before signup.
func RegisterRoutes(router *gin.RouterGroup) {
	billing := router.Group("/billing")
	billing.GET("/usage", Usage)
	billing.GET("/usage-over-time", UsageOverTime)
	billing.GET("/history", History)
	billing.POST("/add-credits", AddCredits)
	billing.POST("/create-payment-intent", CreatePaymentIntent)
	billing.POST("/confirm-payment", ConfirmPayment)
}

func RegisterWebhook(router *gin.RouterGroup) {
	router.POST("/billing/webhook", Webhook)
}
