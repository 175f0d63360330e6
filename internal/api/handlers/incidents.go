package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vladvaleanu/automation-platform-sub000/internal/core/alerting"
	"github.com/vladvaleanu/automation-platform-sub000/internal/websocket"
	"github.com/vladvaleanu/automation-platform-sub000/pkg/utils"
)

// GetIncidents lists incidents newest first. Supports ?status= filtering and
// ?alerts=true to embed the member alerts in the response.
func (h *Handlers) GetIncidents(c *gin.Context) {
	status := alerting.IncidentStatus(c.Query("status"))
	if status != "" && !alerting.ValidIncidentStatus(status) {
		utils.SendError(c, http.StatusBadRequest, "Unknown incident status: "+string(status))
		return
	}

	incidents, err := h.store.ListIncidents(c.Request.Context(), status)
	if err != nil {
		h.log.WithError(err).Error("Failed to list incidents")
		utils.SendError(c, http.StatusInternalServerError, "Failed to list incidents")
		return
	}

	if c.Query("alerts") != "true" {
		for _, inc := range incidents {
			inc.Alerts = nil
		}
	}

	utils.SendSuccessWithMeta(c, incidents, gin.H{"count": len(incidents)})
}

// GetIncident returns one incident with its alerts.
func (h *Handlers) GetIncident(c *gin.Context) {
	incident, err := h.store.GetIncident(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, alerting.ErrNotFound) {
			utils.SendError(c, http.StatusNotFound, "Incident not found")
			return
		}
		h.log.WithError(err).Error("Failed to load incident")
		utils.SendError(c, http.StatusInternalServerError, "Failed to load incident")
		return
	}
	utils.SendSuccess(c, incident)
}

type updateIncidentRequest struct {
	Status           *alerting.IncidentStatus `json:"status"`
	HasForgeAnalysis *bool                    `json:"has_forge_analysis"`
}

// UpdateIncident applies operator changes: a lifecycle transition, an
// analysis flag, or both. Transitions go through the incident state machine,
// so closed incidents reject further status changes.
func (h *Handlers) UpdateIncident(c *gin.Context) {
	var req updateIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid incident payload: "+err.Error())
		return
	}
	if req.Status == nil && req.HasForgeAnalysis == nil {
		utils.SendError(c, http.StatusBadRequest, "Nothing to update")
		return
	}

	id := c.Param("id")
	now := time.Now()
	var transitionErr error

	err := h.store.UpdateIncident(c.Request.Context(), id, func(inc *alerting.Incident) error {
		if req.Status != nil {
			if err := inc.Transition(*req.Status, now); err != nil {
				transitionErr = err
				return err
			}
		}
		if req.HasForgeAnalysis != nil {
			inc.HasForgeAnalysis = *req.HasForgeAnalysis
			inc.UpdatedAt = now
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, alerting.ErrNotFound):
			utils.SendError(c, http.StatusNotFound, "Incident not found")
		case transitionErr != nil:
			utils.SendError(c, http.StatusConflict, transitionErr.Error())
		default:
			h.log.WithError(err).WithField("incident_id", id).Error("Failed to update incident")
			utils.SendError(c, http.StatusInternalServerError, "Failed to update incident")
		}
		return
	}

	incident, err := h.store.GetIncident(c.Request.Context(), id)
	if err != nil {
		h.log.WithError(err).WithField("incident_id", id).Error("Failed to reload incident")
		utils.SendError(c, http.StatusInternalServerError, "Failed to reload incident")
		return
	}

	h.wsHub.BroadcastToAll(websocket.IncidentUpdatedMessage(incident))
	utils.SendSuccess(c, incident)
}
