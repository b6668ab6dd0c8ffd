package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sahilhd/unify/internal/database"
	"github.com/sahilhd/unify/internal/utils"
)

const (
	loginAttemptLimit  = 5
	loginLockoutWindow = 15 * time.Minute
)

func loginFailureKey(ip string) string {
	return fmt.Sprintf("login_failures:%s", ip)
}

// BruteForceGuard blocks login attempts from an IP after repeated failures.
// The handler reports outcomes through RecordLoginFailure and
// ClearLoginFailures.
func BruteForceGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := database.RedisClient.Get(database.Ctx, loginFailureKey(c.ClientIP())).Int64()
		if err == nil && count >= loginAttemptLimit {
			c.Header("Retry-After", fmt.Sprintf("%d", int(loginLockoutWindow.Seconds())))
			c.JSON(http.StatusTooManyRequests, utils.NewErrorResponse(http.StatusTooManyRequests,
				"Too many failed login attempts, try again later"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RecordLoginFailure bumps the failure counter for an IP. The counter expires
// with the lockout window.
func RecordLoginFailure(ip string) {
	key := loginFailureKey(ip)
	count, err := database.RedisClient.Incr(database.Ctx, key).Result()
	if err != nil {
		return
	}
	if count == 1 {
		database.RedisClient.Expire(database.Ctx, key, loginLockoutWindow)
	}
}

// ClearLoginFailures resets the counter after a successful login.
func ClearLoginFailures(ip string) {
	database.RedisClient.Del(database.Ctx, loginFailureKey(ip))
}
