package api

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/vladvaleanu/automation-platform-sub000/internal/api/handlers"
	"github.com/vladvaleanu/automation-platform-sub000/internal/api/middleware"
	"github.com/vladvaleanu/automation-platform-sub000/internal/config"
	"github.com/vladvaleanu/automation-platform-sub000/internal/core/alerting"
	"github.com/vladvaleanu/automation-platform-sub000/internal/core/metrics"
	"github.com/vladvaleanu/automation-platform-sub000/internal/database/repositories"
	"github.com/vladvaleanu/automation-platform-sub000/internal/websocket"
)

// NewRouter creates and configures the main HTTP router
func NewRouter(
	cfg *config.Config,
	engine *alerting.Engine,
	store alerting.Store,
	rules repositories.RuleRepository,
	db *sqlx.DB,
	wsHub *websocket.Hub,
	httpMetrics *metrics.HTTP,
	logger *logrus.Logger,
) *gin.Engine {
	// Set gin mode based on config
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.ErrorHandlingMiddleware(logger))
	router.Use(middleware.ErrorResponseMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	if cfg.Security.EnableCORS {
		router.Use(middleware.CORSMiddleware(cfg.Security.AllowedOrigins))
	}
	if httpMetrics != nil {
		router.Use(middleware.MetricsMiddleware(httpMetrics))
	}

	// Initialize handlers
	h := handlers.NewHandlers(cfg, engine, store, rules, db, wsHub, logger)

	// Public routes
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket endpoint
	router.GET("/ws", h.WebSocketHandler)

	// API v1 routes
	api := router.Group("/api/v1")
	{
		api.GET("/status", h.Health)

		// Event ingestion
		api.POST("/events", h.IngestEvent)

		// Rule management
		ruleRoutes := api.Group("/alert-rules")
		{
			ruleRoutes.GET("/", h.GetAlertRules)
			ruleRoutes.POST("/", h.CreateAlertRule)
			ruleRoutes.GET("/:id", h.GetAlertRule)
			ruleRoutes.PUT("/:id", h.UpdateAlertRule)
			ruleRoutes.DELETE("/:id", h.DeleteAlertRule)
			ruleRoutes.PATCH("/:id/toggle", h.ToggleAlertRule)
		}
		api.GET("/alert-sources", h.GetAlertSources)

		// Fired alerts and incidents
		monitoring := api.Group("/monitoring")
		{
			monitoring.GET("/alerts", h.GetAlerts)
			monitoring.GET("/alerts/:id", h.GetAlert)
			monitoring.POST("/alerts/:id/acknowledge", h.AcknowledgeAlert)

			monitoring.GET("/incidents", h.GetIncidents)
			monitoring.GET("/incidents/:id", h.GetIncident)
			monitoring.PATCH("/incidents/:id", h.UpdateIncident)

			monitoring.GET("/engine/stats", h.GetEngineStatistics)
		}

		// WebSocket management endpoints
		ws := api.Group("/websocket")
		{
			ws.GET("/stats", h.GetWebSocketStats)
		}
	}

	return router
}
