package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Cherry1177/cloudtribe/internal/services"
)

// WebSocketHandler attaches the requesting screen to the event hub.
func WebSocketHandler(hub *services.Hub, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := hub.Serve(c.Writer, c.Request); err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			c.JSON(400, gin.H{"error": "WebSocket upgrade failed"})
		}
	}
}
