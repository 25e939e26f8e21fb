package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/triagedesk/backend/internal/apperrors"
	"github.com/triagedesk/backend/internal/logger"
)

const (
	RequestIDHeader  = "X-Request-ID"
	ContextRequestID = "request_id"
)

// RequestID tags every request with an id, reusing the caller's when sent
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(ContextRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// CustomLoggerMiddleware logs one line per request
func CustomLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		entry := logger.WithComponent("api").WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"client_ip":  c.ClientIP(),
			"user_id":    CurrentUserID(c),
			"request_id": c.GetString(ContextRequestID),
		})
		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request handled")
		}
	}
}

func abortWithError(c *gin.Context, err error) {
	if appErr, ok := apperrors.As(err); ok && appErr.Details != "" {
		logger.WithComponent("api").WithField("request_id", c.GetString(ContextRequestID)).
			WithField("details", appErr.Details).Debug(appErr.Message)
	}
	c.AbortWithStatusJSON(apperrors.StatusCode(err), gin.H{
		"success": false,
		"message": apperrors.PublicMessage(err),
	})
}
