package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/vladvaleanu/automation-platform-sub000/internal/websocket"
	"github.com/vladvaleanu/automation-platform-sub000/pkg/utils"
)

// WebSocketHandler upgrades the connection and hands it to the hub.
func (h *Handlers) WebSocketHandler(c *gin.Context) {
	websocket.HandleWebSocket(h.wsHub, c.Writer, c.Request)
}

// GetWebSocketStats reports hub connection counts.
func (h *Handlers) GetWebSocketStats(c *gin.Context) {
	utils.SendSuccess(c, h.wsHub.GetStats())
}
