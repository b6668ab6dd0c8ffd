package apikey

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup) {
	keys := router.Group("/api-keys")
	keys.GET("", List)
	keys.POST("", Regenerate)
	keys.DELETE("", Revoke)
}
