package handlers

import (
	"github.com/devcollab/platform/backend/internal/eventstore"
	"github.com/devcollab/platform/backend/internal/models"
	"github.com/devcollab/platform/backend/internal/services"
	"github.com/gin-gonic/gin"
)

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	hub *eventstore.Hub
}

func NewHealthHandler(hub *eventstore.Hub) *HealthHandler {
	return &HealthHandler{hub: hub}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"

	// Database check
	dbStatus := "ok"
	sqlDB, err := models.GetDB().DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}

	// Publisher mode
	publisher := services.GetPublisher()
	publishMode := "sync"
	if publisher != nil && publisher.IsAsync() {
		publishMode = "async (Redis)"
	}

	// Pending join request count
	var pendingCount int64
	models.GetDB().Model(&models.JoinRequest{}).
		Where("status = ?", "PENDING").
		Count(&pendingCount)

	c.JSON(200, gin.H{
		"status":  overall,
		"service": "devcollab",
		"components": gin.H{
			"database":         dbStatus,
			"publish_mode":     publishMode,
			"stream_clients":   h.hub.SubscriberCount(),
			"pending_requests": pendingCount,
		},
	})
}
