package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sahilhd/unify/internal/database"
	"github.com/sahilhd/unify/internal/models"
	"github.com/sahilhd/unify/internal/utils"
)

const rateLimitWindow = 60 * time.Second

// RateLimitMiddleware enforces a fixed-window per-user request budget backed
// by a Redis counter. Runs after AuthMiddleware so the window is keyed by
// account, not by IP. The default budget is 60 requests per 60 seconds;
// accounts can carry their own override.
func RateLimitMiddleware(defaultLimit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}

		value, exists := c.Get("user")
		if !exists {
			c.Next()
			return
		}
		user, ok := value.(models.User)
		if !ok {
			c.Next()
			return
		}

		limit := defaultLimit
		if user.RateLimitPerMinute > 0 {
			limit = user.RateLimitPerMinute
		}

		window := time.Now().Unix() / int64(rateLimitWindow.Seconds())
		key := fmt.Sprintf("ratelimit:%s:%d", user.ID, window)

		count, err := database.RedisClient.Incr(database.Ctx, key).Result()
		if err != nil {
			// The limiter never takes the gateway down with it.
			c.Next()
			return
		}
		if count == 1 {
			database.RedisClient.Expire(database.Ctx, key, rateLimitWindow)
		}

		if count > int64(limit) {
			c.Header("Retry-After", fmt.Sprintf("%d", int(rateLimitWindow.Seconds())))
			c.JSON(http.StatusTooManyRequests, utils.NewErrorResponse(http.StatusTooManyRequests,
				fmt.Sprintf("Rate limit exceeded: %d requests per minute", limit)))
			c.Abort()
			return
		}

		c.Next()
	}
}
