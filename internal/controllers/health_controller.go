package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/triagedesk/backend/internal/db"
	"gorm.io/gorm"
)

type HealthController struct {
	db      *gorm.DB
	started time.Time
}

func NewHealthController(database *gorm.DB) *HealthController {
	return &HealthController{db: database, started: time.Now()}
}

// Health answers 200 while the database is reachable and 503 otherwise
func (hc *HealthController) Health(c *gin.Context) {
	body := gin.H{
		"status":   "ok",
		"database": "up",
		"uptime":   time.Since(hc.started).Round(time.Second).String(),
	}
	if err := db.Ping(hc.db); err != nil {
		body["status"] = "degraded"
		body["database"] = "down"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}
