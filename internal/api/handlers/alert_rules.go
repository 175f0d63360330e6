package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladvaleanu/automation-platform-sub000/internal/core/alerting"
	"github.com/vladvaleanu/automation-platform-sub000/pkg/utils"
)

// GetAlertRules returns all configured rules.
func (h *Handlers) GetAlertRules(c *gin.Context) {
	utils.SendSuccess(c, h.engine.ListRules())
}

// GetAlertRule returns one rule by id.
func (h *Handlers) GetAlertRule(c *gin.Context) {
	rule, err := h.engine.GetRule(c.Param("id"))
	if err != nil {
		utils.SendError(c, http.StatusNotFound, "Alert rule not found")
		return
	}
	utils.SendSuccess(c, rule)
}

// CreateAlertRule validates, installs and persists a new rule.
func (h *Handlers) CreateAlertRule(c *gin.Context) {
	var rule alerting.AlertRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid rule payload: "+err.Error())
		return
	}

	if err := h.engine.AddRule(&rule); err != nil {
		utils.SendError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.rules.Create(c.Request.Context(), &rule); err != nil {
		// Keep engine and store consistent: the rule is not live if it is
		// not durable.
		h.engine.RemoveRule(rule.ID)
		h.log.WithError(err).WithField("rule_id", rule.ID).Error("Failed to persist alert rule")
		utils.SendError(c, http.StatusInternalServerError, "Failed to persist alert rule")
		return
	}

	utils.SendCreated(c, &rule)
}

// UpdateAlertRule atomically replaces a rule.
func (h *Handlers) UpdateAlertRule(c *gin.Context) {
	var rule alerting.AlertRule
	if err := c.ShouldBindJSON(&rule); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid rule payload: "+err.Error())
		return
	}
	rule.ID = c.Param("id")

	previous, err := h.engine.GetRule(rule.ID)
	if err != nil {
		utils.SendError(c, http.StatusNotFound, "Alert rule not found")
		return
	}

	if err := h.engine.UpdateRule(&rule); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, alerting.ErrNotFound) {
			status = http.StatusNotFound
		}
		utils.SendError(c, status, err.Error())
		return
	}

	if err := h.rules.Update(c.Request.Context(), &rule); err != nil {
		// Restore the previous rule so the engine never diverges from what
		// the store will reload after a restart.
		if restoreErr := h.engine.UpdateRule(previous); restoreErr != nil {
			h.log.WithError(restoreErr).WithField("rule_id", rule.ID).Error("Failed to restore alert rule after persist failure")
		}
		h.log.WithError(err).WithField("rule_id", rule.ID).Error("Failed to persist alert rule update")
		utils.SendError(c, http.StatusInternalServerError, "Failed to persist alert rule")
		return
	}

	utils.SendSuccess(c, &rule)
}

// DeleteAlertRule removes a rule from the engine and the store.
func (h *Handlers) DeleteAlertRule(c *gin.Context) {
	id := c.Param("id")

	if err := h.engine.RemoveRule(id); err != nil {
		utils.SendError(c, http.StatusNotFound, "Alert rule not found")
		return
	}
	if err := h.rules.Delete(c.Request.Context(), id); err != nil && !errors.Is(err, alerting.ErrNotFound) {
		h.log.WithError(err).WithField("rule_id", id).Error("Failed to delete persisted alert rule")
		utils.SendError(c, http.StatusInternalServerError, "Failed to delete alert rule")
		return
	}

	utils.SendSuccess(c, gin.H{"deleted": id})
}

type toggleRuleRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// ToggleAlertRule enables or disables a rule without a full replace.
func (h *Handlers) ToggleAlertRule(c *gin.Context) {
	var req toggleRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Body must carry an \"enabled\" boolean")
		return
	}
	id := c.Param("id")

	previous, err := h.engine.GetRule(id)
	if err != nil {
		utils.SendError(c, http.StatusNotFound, "Alert rule not found")
		return
	}

	if err := h.engine.SetRuleEnabled(id, *req.Enabled); err != nil {
		utils.SendError(c, http.StatusNotFound, "Alert rule not found")
		return
	}
	if err := h.rules.SetEnabled(c.Request.Context(), id, *req.Enabled); err != nil && !errors.Is(err, alerting.ErrNotFound) {
		if restoreErr := h.engine.SetRuleEnabled(id, previous.Enabled); restoreErr != nil {
			h.log.WithError(restoreErr).WithField("rule_id", id).Error("Failed to restore rule state after persist failure")
		}
		h.log.WithError(err).WithField("rule_id", id).Error("Failed to persist rule toggle")
		utils.SendError(c, http.StatusInternalServerError, "Failed to persist rule toggle")
		return
	}

	utils.SendSuccess(c, gin.H{"id": id, "enabled": *req.Enabled})
}

// GetAlertSources enumerates known event sources for rule configuration.
func (h *Handlers) GetAlertSources(c *gin.Context) {
	utils.SendSuccess(c, gin.H{"sources": h.engine.KnownSources()})
}
