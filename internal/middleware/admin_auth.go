package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sahilhd/unify/internal/models"
	"github.com/sahilhd/unify/internal/utils"
	"github.com/sahilhd/unify/pkg/logger"
)

// AdminAuthMiddleware runs after AuthMiddleware and gates admin-only routes.
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get("user")
		if !exists {
			c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Authentication required"))
			c.Abort()
			return
		}

		user, ok := value.(models.User)
		if !ok || !user.IsAdmin {
			logger.Log.Warn("unauthorized admin access attempt",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()),
			)
			c.JSON(http.StatusForbidden, utils.NewErrorResponse(http.StatusForbidden, "Forbidden: Admins only"))
			c.Abort()
			return
		}

		c.Next()
	}
}
