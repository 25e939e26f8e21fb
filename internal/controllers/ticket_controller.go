package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/triagedesk/backend/internal/apperrors"
	"github.com/triagedesk/backend/internal/services"
)

type TicketController struct {
	tickets *services.TicketService
}

func NewTicketController(tickets *services.TicketService) *TicketController {
	return &TicketController{tickets: tickets}
}

// GetTickets lists tickets, optionally by status, priority and assignee
func (tc *TicketController) GetTickets(c *gin.Context) {
	filter := services.TicketFilter{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Limit:    queryInt(c, "limit", 0),
	}
	if raw := c.Query("assignee"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			respondError(c, apperrors.NewValidationError("assignee is invalid"))
			return
		}
		filter.AssigneeID = uint(id)
	}

	tickets, err := tc.tickets.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, tickets)
}

// CreateTicket files a ticket by hand; the timestamp defaults to now
func (tc *TicketController) CreateTicket(c *gin.Context) {
	var req services.IntakeRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}
	tc.intake(c, req)
}

// Intake accepts an error report from a monitored system
func (tc *TicketController) Intake(c *gin.Context) {
	var req services.IntakeRequest
	if !bindJSON(c, &req) {
		return
	}
	tc.intake(c, req)
}

func (tc *TicketController) intake(c *gin.Context, req services.IntakeRequest) {
	ticket, err := tc.tickets.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, ticket)
}

func (tc *TicketController) GetTicket(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ticket, err := tc.tickets.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, ticket)
}

func (tc *TicketController) UpdateTicket(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var patch services.TicketPatch
	if !bindJSON(c, &patch) {
		return
	}
	ticket, err := tc.tickets.Update(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, ticket)
}
