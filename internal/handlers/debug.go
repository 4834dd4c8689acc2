package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/telemetry"
)

// SystemBroadcaster fans a system notice out to every connected client.
type SystemBroadcaster interface {
	BroadcastSystemNotice(content string)
}

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, broadcaster SystemBroadcaster, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), "INFO", "audit test", requestIDFromContext(c), nil)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/debug/broadcast", func(c *gin.Context) {
		var req struct {
			Content string `json:"content" binding:"required,max=1000"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		broadcaster.BroadcastSystemNotice(req.Content)
		c.JSON(http.StatusOK, gin.H{"status": "sent"})
	})
}
