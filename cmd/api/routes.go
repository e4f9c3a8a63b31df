package main

import (
	"database/sql"
	"time"

	"voice-runtime/internal/auth"
	"voice-runtime/internal/config"
	"voice-runtime/internal/httpapi"
	"voice-runtime/internal/metrics"
	"voice-runtime/internal/runtime"
	"voice-runtime/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type routeDeps struct {
	auth    *auth.Manager
	runtime *runtime.Runtime
	metrics *metrics.Metrics
	db      *sql.DB
	rdb     *redis.Client
	cfg     config.Config
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, deps routeDeps) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), deps.db, 2*time.Second); err != nil {
			c.JSON(503, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		if err := deps.rdb.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(503, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(deps.metrics.Handler()))

	h := httpapi.Handlers{
		Auth:      deps.auth,
		Runtime:   deps.runtime,
		Redis:     deps.rdb,
		TurnLimit: deps.cfg.Runtime.WorkspaceTurnLimit,
	}

	// protected API group
	v1 := r.Group("/v1")
	{
		// Token issuance.
		// NOTE: This is a placeholder login route; real credential validation is not implemented.
		v1.POST("/auth/login", h.Login)

		protected := v1.Group("")
		protected.Use(auth.RequireAccessToken(deps.auth))
		{
			protected.POST("/calls/:call_id/turns", h.ProcessTurn)

			// Identity echo, useful for integration debugging.
			protected.GET("/me", func(c *gin.Context) {
				uid, _ := auth.UserID(c.Request.Context())
				wid, _ := auth.WorkspaceID(c.Request.Context())
				role, _ := auth.Role(c.Request.Context())
				c.JSON(200, gin.H{"user_id": uid, "workspace_id": wid, "role": role})
			})
		}
	}
}
