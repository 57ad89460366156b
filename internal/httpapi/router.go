// Package httpapi wires the Gin router: the public /api/snap-shots,
// /api/jobs, /api/admin, and static asset surface, plus the shared
// middleware stack the teacher's router already established.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/chris-o-r/SnapShotTesting/internal/config"
	"github.com/chris-o-r/SnapShotTesting/internal/database"
	"github.com/chris-o-r/SnapShotTesting/internal/middleware"
)

// Setup creates and configures the Gin router over orchestrator, serving
// static assets out of assetsRoot.
func Setup(db *database.DB, orchestrator Orchestrator, assetsRoot string, removeAssetsRoot func() error) *gin.Engine {
	snapShotHandler := NewSnapShotHandler(orchestrator)
	jobHandler := NewJobHandler(orchestrator)
	adminHandler := NewAdminHandler(orchestrator, removeAssetsRoot)

	router := setupBaseRouter()

	router.GET("/ping", ping)
	router.GET("/health", healthCheck(db))
	router.GET("/api", apiDocumentation())

	api := router.Group("/api")
	{
		snapShots := api.Group("/snap-shots")
		{
			snapShots.POST("", snapShotHandler.CreateSnapShotBatch)
			snapShots.GET("", snapShotHandler.GetSnapShotBatches)
			snapShots.GET("/:id", snapShotHandler.GetSnapShotBatch)
			snapShots.DELETE("/:id", snapShotHandler.DeleteSnapShotBatch)
		}

		jobs := api.Group("/jobs")
		{
			jobs.GET("", jobHandler.GetRunningJobs)
			jobs.GET("/:id", jobHandler.GetJob)
		}

		admin := api.Group("/admin")
		{
			admin.GET("/clean-up", adminHandler.CleanUp)
		}
	}

	router.Static("/api/assets", assetsRoot)

	return router
}

func setupBaseRouter() *gin.Engine {
	router := gin.New()

	router.Use(otelgin.Middleware("snapshot-testing-api"))
	router.Use(middleware.Observability())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RateLimit())

	// Trusted proxies left unset: this service is assumed to sit behind an
	// already-configured reverse proxy or run standalone, never directly
	// trusting forwarded headers from arbitrary clients.
	router.SetTrustedProxies(nil)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = config.GetAllowedOrigins()
	corsConfig.AllowHeaders = []string{
		"Origin", "Content-Type", "Authorization", "Accept", "User-Agent",
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	return router
}

func ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func healthCheck(db *database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"database":  "postgresql",
				"timestamp": time.Now().Unix(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "postgresql",
			"timestamp": time.Now().Unix(),
		})
	}
}

func apiDocumentation() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":        "Snapshot Testing API",
			"description": "Visual-regression engine for component galleries",
			"endpoints": map[string]string{
				"create_batch": "POST /api/snap-shots",
				"list_batches": "GET /api/snap-shots",
				"get_batch":    "GET /api/snap-shots/:id",
				"delete_batch": "DELETE /api/snap-shots/:id",
				"list_jobs":    "GET /api/jobs",
				"get_job":      "GET /api/jobs/:id",
				"clean_up":     "GET /api/admin/clean-up",
				"assets":       "GET /api/assets/...",
			},
		})
	}
}
