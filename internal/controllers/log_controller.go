package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/triagedesk/backend/internal/apperrors"
	"github.com/triagedesk/backend/internal/realtime"
	"github.com/triagedesk/backend/internal/services"
)

type LogController struct {
	logs   *services.LogService
	events EventSource
}

func NewLogController(logs *services.LogService, events EventSource) *LogController {
	return &LogController{logs: logs, events: events}
}

// IngestLog stores one pushed log line. Error lines naming a system open a
// ticket; when that fails the line is still stored and the reason is
// returned as intake_error.
func (lc *LogController) IngestLog(c *gin.Context) {
	var req services.LogIngestRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := lc.logs.Ingest(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	data := gin.H{"log": result.Log}
	if result.Ticket != nil {
		data["ticket"] = result.Ticket
	}
	if result.IntakeError != nil {
		data["intake_error"] = apperrors.PublicMessage(result.IntakeError)
	}
	respondOK(c, http.StatusCreated, data)
}

func (lc *LogController) GetLogs(c *gin.Context) {
	entries, err := lc.logs.Recent(c.Request.Context(), services.LogFilter{
		Level:  c.Query("level"),
		Source: c.Query("source"),
		Limit:  queryInt(c, "limit", 0),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, entries)
}

func (lc *LogController) GetLog(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	entry, err := lc.logs.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, entry)
}

// StreamLogs pushes newly ingested log lines as server-sent events
func (lc *LogController) StreamLogs(c *gin.Context) {
	streamEvents(c, lc.events, realtime.TableLogs, nil)
}
