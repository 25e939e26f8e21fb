package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/triagedesk/backend/internal/middleware"
	"github.com/triagedesk/backend/internal/realtime"
	"github.com/triagedesk/backend/internal/services"
)

type ChatController struct {
	chat    *services.ChatService
	tickets *services.TicketService
	events  EventSource
}

func NewChatController(chat *services.ChatService, tickets *services.TicketService, events EventSource) *ChatController {
	return &ChatController{chat: chat, tickets: tickets, events: events}
}

type PostMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

func (cc *ChatController) GetMessages(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	messages, err := cc.chat.Messages(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, messages)
}

func (cc *ChatController) PostMessage(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req PostMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := cc.chat.PostMessage(c.Request.Context(), id, middleware.CurrentUserID(c), req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, msg)
}

// AskAssistant stores the question and answers 202; the reply shows up on
// the message stream once generated
func (cc *ChatController) AskAssistant(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req PostMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := cc.chat.AskAssistant(c.Request.Context(), id, middleware.CurrentUserID(c), req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusAccepted, msg)
}

// StreamMessages pushes new messages of one ticket as server-sent events
func (cc *ChatController) StreamMessages(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if _, err := cc.tickets.Get(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	streamEvents(c, cc.events, realtime.TableChatMessages, realtime.ForTicket(id))
}
