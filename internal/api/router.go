package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/sahilhd/unify/config"
	_ "github.com/sahilhd/unify/docs"
	adminStats "github.com/sahilhd/unify/internal/api/v1/admin/stats"
	adminUser "github.com/sahilhd/unify/internal/api/v1/admin/user"
	"github.com/sahilhd/unify/internal/api/v1/apikey"
	"github.com/sahilhd/unify/internal/api/v1/auth"
	"github.com/sahilhd/unify/internal/api/v1/billing"
	"github.com/sahilhd/unify/internal/api/v1/chat"
	"github.com/sahilhd/unify/internal/api/v1/modelcatalog"
	userRoutes "github.com/sahilhd/unify/internal/api/v1/user"
	"github.com/sahilhd/unify/internal/middleware"
	"github.com/sahilhd/unify/internal/registry"
	"github.com/sahilhd/unify/internal/utils"
)

const Version = "2.0.0"

// NewRouter assembles the gateway: CORS, security headers, request logging,
// then the public, authenticated and admin route groups.
func NewRouter(cfg *config.Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.Logger())

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", Health)

	root := router.Group("/")
	{
		auth.RegisterRoutes(root)
		billing.RegisterWebhook(root)
		root.GET("/billing/credit-packages", billing.CreditPackages)

		authorized := root.Group("/")
		authorized.Use(middleware.AuthMiddleware())
		authorized.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))
		{
			v1 := authorized.Group("/v1")
			chat.RegisterRoutes(v1)
			modelcatalog.RegisterRoutes(v1)

			apikey.RegisterRoutes(authorized)
			billing.RegisterRoutes(authorized)
			userRoutes.RegisterRoutes(authorized)
		}

		admin := root.Group("/admin")
		admin.Use(middleware.AuthMiddleware(), middleware.AdminAuthMiddleware())
		{
			adminUser.RegisterRoutes(admin)
			adminStats.RegisterRoutes(admin)
		}
	}

	return router
}

// Health godoc
// @Summary Gateway health
// @Description Liveness plus the provider list; never rate limited
// @Tags health
// @Produce  json
// @Success 200 {object} utils.Response
// @Router /health [get]
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, utils.NewSuccessResponse("OK", gin.H{
		"status":    "healthy",
		"version":   Version,
		"providers": registry.Default.ListProviders(),
		"features": []string{
			"multi-provider routing",
			"usage metering",
			"credit billing",
			"rate limiting",
		},
	}))
}
