package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/triagedesk/backend/internal/logger"
	"github.com/triagedesk/backend/internal/middleware"
	"github.com/triagedesk/backend/internal/services"
)

type AdminController struct {
	cursors services.CursorStore
	agents  *services.AgentClient
	llm     *services.LLMService
}

func NewAdminController(cursors services.CursorStore, agents *services.AgentClient, llm *services.LLMService) *AdminController {
	return &AdminController{cursors: cursors, agents: agents, llm: llm}
}

// StartAgentRequest names the agent to drive and the command to send it
type StartAgentRequest struct {
	AgentURL string `json:"agent_url" binding:"required"`
	services.AgentCommand
}

// GetAssignmentTrackers shows each role's round robin cursor
func (ac *AdminController) GetAssignmentTrackers(c *gin.Context) {
	cursors, err := ac.cursors.Cursors(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, cursors)
}

func (ac *AdminController) StartAgent(c *gin.Context) {
	var req StartAgentRequest
	if !bindJSON(c, &req) {
		return
	}
	logger.WithUser(middleware.CurrentUserID(c)).WithFields(map[string]interface{}{
		"agent_url": req.AgentURL,
		"node_id":   req.NodeID,
	}).Info("Starting log forwarding on agent")

	reply, err := ac.agents.StartForwarding(c.Request.Context(), req.AgentURL, req.AgentCommand)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, reply)
}

func (ac *AdminController) GetLLMAPICalls(c *gin.Context) {
	respondOK(c, http.StatusOK, ac.llm.GetAPICalls())
}

func (ac *AdminController) ClearLLMAPICalls(c *gin.Context) {
	ac.llm.ClearAPICalls()
	respondOK(c, http.StatusOK, gin.H{"message": "LLM API calls cleared"})
}
