package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/triagedesk/backend/internal/middleware"
	"github.com/triagedesk/backend/internal/services"
)

type SettingsController struct {
	notifications *services.NotificationService
	llm           *services.LLMService
}

func NewSettingsController(notifications *services.NotificationService, llm *services.LLMService) *SettingsController {
	return &SettingsController{notifications: notifications, llm: llm}
}

func (sc *SettingsController) GetNotificationSettings(c *gin.Context) {
	settings, err := sc.notifications.GetSettings(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, settings)
}

func (sc *SettingsController) UpdateNotificationSettings(c *gin.Context) {
	var patch services.NotificationSettingsPatch
	if !bindJSON(c, &patch) {
		return
	}
	settings, err := sc.notifications.UpdateSettings(c.Request.Context(), middleware.CurrentUserID(c), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, settings)
}

// GetLLMStatus reports whether the assistant's model server is reachable
func (sc *SettingsController) GetLLMStatus(c *gin.Context) {
	ctx := c.Request.Context()
	status := gin.H{
		"model":     sc.llm.Model(),
		"available": true,
	}
	if err := sc.llm.CheckLLMHealth(ctx); err != nil {
		status["available"] = false
		status["error"] = err.Error()
		respondOK(c, http.StatusOK, status)
		return
	}
	if models, err := sc.llm.GetAvailableModels(ctx); err == nil {
		status["models"] = models
	}
	respondOK(c, http.StatusOK, status)
}
