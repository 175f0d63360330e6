package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vladvaleanu/automation-platform-sub000/internal/core/alerting"
	"github.com/vladvaleanu/automation-platform-sub000/pkg/utils"
)

const defaultAlertLimit = 100

// GetAlerts lists fired alerts newest first. ?limit= caps the result size.
func (h *Handlers) GetAlerts(c *gin.Context) {
	limit := defaultAlertLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			utils.SendError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	alerts, err := h.store.ListAlerts(c.Request.Context(), limit)
	if err != nil {
		h.log.WithError(err).Error("Failed to list alerts")
		utils.SendError(c, http.StatusInternalServerError, "Failed to list alerts")
		return
	}
	utils.SendSuccessWithMeta(c, alerts, gin.H{"count": len(alerts), "limit": limit})
}

// GetAlert returns one alert by id.
func (h *Handlers) GetAlert(c *gin.Context) {
	alert, err := h.store.GetAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, alerting.ErrNotFound) {
			utils.SendError(c, http.StatusNotFound, "Alert not found")
			return
		}
		h.log.WithError(err).Error("Failed to load alert")
		utils.SendError(c, http.StatusInternalServerError, "Failed to load alert")
		return
	}
	utils.SendSuccess(c, alert)
}

// AcknowledgeAlert marks an alert as seen, which removes it from future
// escalation sweeps.
func (h *Handlers) AcknowledgeAlert(c *gin.Context) {
	id := c.Param("id")

	err := h.store.UpdateAlert(c.Request.Context(), id, func(a *alerting.Alert) error {
		a.Acknowledged = true
		return nil
	})
	if err != nil {
		if errors.Is(err, alerting.ErrNotFound) {
			utils.SendError(c, http.StatusNotFound, "Alert not found")
			return
		}
		h.log.WithError(err).WithField("alert_id", id).Error("Failed to acknowledge alert")
		utils.SendError(c, http.StatusInternalServerError, "Failed to acknowledge alert")
		return
	}

	utils.SendSuccess(c, gin.H{"id": id, "acknowledged": true})
}

// GetEngineStatistics exposes the engine's pipeline counters.
func (h *Handlers) GetEngineStatistics(c *gin.Context) {
	utils.SendSuccess(c, h.engine.GetStatistics())
}
