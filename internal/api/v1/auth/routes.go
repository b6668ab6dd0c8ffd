package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/sahilhd/unify/internal/middleware"
)

func RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	auth.POST("/register", Register)
	auth.POST("/login", middleware.BruteForceGuard(), Login)
	auth.POST("/logout", middleware.AuthMiddleware(), Logout)
	auth.GET("/me", middleware.AuthMiddleware(), Me)
}
