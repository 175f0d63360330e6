package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/vladvaleanu/automation-platform-sub000/internal/config"
	"github.com/vladvaleanu/automation-platform-sub000/internal/core/alerting"
	"github.com/vladvaleanu/automation-platform-sub000/internal/database/repositories"
	"github.com/vladvaleanu/automation-platform-sub000/internal/websocket"
	"github.com/vladvaleanu/automation-platform-sub000/pkg/utils"
	"github.com/vladvaleanu/automation-platform-sub000/pkg/version"
)

// Handlers holds all HTTP handlers and their dependencies
type Handlers struct {
	cfg    *config.Config
	engine *alerting.Engine
	store  alerting.Store
	rules  repositories.RuleRepository
	db     *sqlx.DB
	wsHub  *websocket.Hub
	log    *logrus.Logger

	startedAt time.Time
}

// NewHandlers creates a new handlers instance
func NewHandlers(cfg *config.Config, engine *alerting.Engine, store alerting.Store, rules repositories.RuleRepository, db *sqlx.DB, wsHub *websocket.Hub, logger *logrus.Logger) *Handlers {
	return &Handlers{
		cfg:       cfg,
		engine:    engine,
		store:     store,
		rules:     rules,
		db:        db,
		wsHub:     wsHub,
		log:       logger,
		startedAt: time.Now(),
	}
}

// Health reports service liveness and its dependencies.
func (h *Handlers) Health(c *gin.Context) {
	dbStatus := "healthy"
	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			dbStatus = "unhealthy"
		}
	}

	utils.SendSuccess(c, gin.H{
		"status":     "ok",
		"version":    version.GetVersion(),
		"database":   dbStatus,
		"uptime":     time.Since(h.startedAt).String(),
		"ws_clients": h.wsHub.GetClientCount(),
	})
}
