package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sahilhd/unify/internal/models"
	"github.com/sahilhd/unify/internal/services"
	"github.com/sahilhd/unify/internal/utils"
)

// AuthMiddleware accepts either a JWT or a gateway API key in the
// Authorization header. The credential kind is decided by an unverified parse
// probe, so API keys that happen to contain dots still work.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := utils.ExtractToken(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, err.Error()))
			c.Abort()
			return
		}

		if utils.LooksLikeJWT(tokenString) {
			authenticateJWT(c, tokenString)
			return
		}
		authenticateAPIKey(c, tokenString)
	}
}

func authenticateJWT(c *gin.Context, tokenString string) {
	isDenylisted, err := services.IsDenylisted(tokenString)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, "Failed to check token status"))
		c.Abort()
		return
	}
	if isDenylisted {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Token has been revoked"))
		c.Abort()
		return
	}

	claims, err := utils.ValidateToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Invalid or expired token"))
		c.Abort()
		return
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Invalid user ID in token"))
		c.Abort()
		return
	}

	user, err := services.FindUserByID(userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "User not found"))
		c.Abort()
		return
	}

	finishAuth(c, user, tokenString)
}

func authenticateAPIKey(c *gin.Context, apiKey string) {
	user, err := services.FindUserByAPIKey(apiKey)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Invalid API key"))
		c.Abort()
		return
	}

	finishAuth(c, user, apiKey)
}

func finishAuth(c *gin.Context, user models.User, credential string) {
	if !user.IsActive {
		c.JSON(http.StatusForbidden, utils.NewErrorResponse(http.StatusForbidden, "Account is disabled"))
		c.Abort()
		return
	}

	c.Set("user", user)
	c.Set("credential", credential)
	c.Next()
}
