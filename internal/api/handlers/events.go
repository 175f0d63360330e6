package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vladvaleanu/automation-platform-sub000/internal/core/alerting"
	"github.com/vladvaleanu/automation-platform-sub000/pkg/utils"
)

// IngestEvent accepts an operational event and runs it through the rule
// pipeline. By default the event is enqueued and processed by the worker
// pool; ?sync=true processes inline so the caller observes emit failures.
func (h *Handlers) IngestEvent(c *gin.Context) {
	var event alerting.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Invalid event payload: "+err.Error())
		return
	}
	if event.Source == "" || event.Type == "" {
		utils.SendError(c, http.StatusBadRequest, "Event requires source and type")
		return
	}

	if c.Query("sync") == "true" {
		if err := h.engine.ProcessEvent(c.Request.Context(), event); err != nil {
			h.log.WithError(err).WithFields(map[string]interface{}{
				"source": event.Source,
				"type":   event.Type,
			}).Error("Event processing failed")
			utils.SendError(c, http.StatusInternalServerError, "Event processing failed")
			return
		}
		utils.SendSuccess(c, gin.H{"processed": true})
		return
	}

	if err := h.engine.HandleEvent(event); err != nil {
		utils.SendError(c, http.StatusServiceUnavailable, err.Error())
		return
	}
	c.JSON(http.StatusAccepted, utils.Response{
		Success:   true,
		Data:      gin.H{"queued": true},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
