// Package router assembles the Gin engine from the registered modules.
package router

import (
	"net/http"
	"time"

	apphttp "chantier_crm_backend/internal/http"
	"chantier_crm_backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// New builds the HTTP engine: global middleware, health endpoints, and one
// route group per registered module.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(corsMiddleware(app.Config))

	limiter := httpkit.NewIPRateLimiter(rate.Limit(20), 40, app.Logger)
	engine.Use(limiter.RateLimit())

	engine.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/api/ready", func(c *gin.Context) {
		if err := app.Health.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	authMiddleware := httpkit.AuthRequired(app.Config)

	v1 := engine.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(authMiddleware)

	ctx := &apphttp.RouterContext{
		Engine:         engine,
		V1:             v1,
		Protected:      protected,
		Config:         app.Config,
		AuthMiddleware: authMiddleware,
	}

	for _, module := range app.Modules {
		module.RegisterRoutes(ctx)
		app.Logger.Info("registered module routes", "module", module.Name())
	}

	return engine
}

func corsMiddleware(cfg apphttp.RouterConfig) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: cfg.GetCORSAllowCreds(),
		MaxAge:           12 * time.Hour,
	}
	if cfg.GetCORSAllowAll() {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = cfg.GetCORSOrigins()
	}
	return cors.New(corsConfig)
}
