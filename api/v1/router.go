package v1

import (
	"linkhub/api/v1/auth"
	"linkhub/api/v1/customdomains"
	"linkhub/api/v1/middleware"
	"linkhub/internal/config"
	"linkhub/internal/customdomain"
	"linkhub/internal/httpx"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter sets up the API v1 routes
func SetupRouter(r *gin.Engine, db *gorm.DB, cfg *config.Config, svc *customdomain.Service, verifier *customdomain.Verifier) {
	domainsHandler := customdomains.NewHandler(svc, verifier)

	v1 := r.Group("/api/v1")
	{
		// Public routes (no authentication required)
		v1.GET("/ping", pingHandler)

		// The edge router resolves hostnames without credentials
		v1.GET("/custom-domains/resolve", domainsHandler.Resolve)

		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", auth.LoginHandler(db, cfg))
		}

		// Protected routes (authentication required)
		protected := v1.Group("")
		protected.Use(middleware.AuthRequired())
		{
			protected.GET("/me", meHandler)

			domainsGroup := protected.Group("/custom-domains")
			{
				domainsGroup.GET("", domainsHandler.List)
				domainsGroup.POST("", domainsHandler.Create)
				domainsGroup.GET("/default", domainsHandler.GetDefault)
				domainsGroup.POST("/clear-default", domainsHandler.ClearDefault)
				domainsGroup.GET("/:id", domainsHandler.Get)
				domainsGroup.DELETE("/:id", domainsHandler.Delete)
				domainsGroup.GET("/:id/setup-instructions", domainsHandler.SetupInstructions)
				domainsGroup.POST("/:id/verify", domainsHandler.Verify)
				domainsGroup.POST("/:id/verify-cname", domainsHandler.VerifyCname)
				domainsGroup.POST("/:id/set-default", domainsHandler.SetDefault)
				domainsGroup.POST("/:id/enable", domainsHandler.SetEnabled)
			}
		}
	}
}

// pingHandler handles the ping request using unified response
func pingHandler(c *gin.Context) {
	httpx.OK(c, gin.H{
		"pong": true,
	})
}

// meHandler returns current user information
func meHandler(c *gin.Context) {
	uid, _ := c.Get("uid")
	username, _ := c.Get("username")
	role, _ := c.Get("role")

	httpx.OK(c, gin.H{
		"uid":      uid,
		"username": username,
		"role":     role,
	})
}
