package stats

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/stats", Overview)
	router.GET("/billing/export", ExportBilling)
	router.POST("/billing/refund", Refund)
}
