package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/triagedesk/backend/internal/apperrors"
	"github.com/triagedesk/backend/internal/logger"
	"github.com/triagedesk/backend/internal/middleware"
)

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes the short public message for err and logs the rest
func respondError(c *gin.Context, err error) {
	status := apperrors.StatusCode(err)
	entry := logger.WithComponent("api").WithFields(map[string]interface{}{
		"path":       c.FullPath(),
		"request_id": c.GetString(middleware.ContextRequestID),
		"user_id":    middleware.CurrentUserID(c),
	})
	if appErr, ok := apperrors.As(err); ok {
		entry = entry.WithField("error_type", appErr.Type)
		if appErr.Details != "" {
			entry = entry.WithField("details", appErr.Details)
		}
	}
	if status >= http.StatusInternalServerError {
		entry.WithError(err).Error("Request failed")
	} else {
		entry.Debug(apperrors.PublicMessage(err))
	}

	c.JSON(status, gin.H{
		"success": false,
		"message": apperrors.PublicMessage(err),
	})
}

// bindJSON decodes the body into dst, answering 400 on failure
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			respondError(c, apperrors.NewValidationError(verrs[0].Field()+" is invalid", verrs.Error()))
			return false
		}
		respondError(c, apperrors.NewValidationError("Invalid request body", err.Error()))
		return false
	}
	return true
}

// idParam parses a positive numeric path parameter
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, apperrors.NewValidationError("Invalid "+name))
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return fallback
	}
	return v
}
