package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/triagedesk/backend/internal/apperrors"
	"github.com/triagedesk/backend/internal/logger"
)

// Authorizer decides whether a role may perform action on resource
type Authorizer interface {
	Allowed(role, resource, action string) (bool, error)
}

// RequirePermission rejects callers whose role lacks resource/action. It
// must run after AuthMiddleware.
func RequirePermission(authz Authorizer, resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := CurrentRole(c)
		allowed, err := authz.Allowed(role, resource, action)
		if err != nil {
			logger.WithError(err, "permission").Error("Permission check failed")
			abortWithError(c, apperrors.NewBackendError("permission check", err))
			return
		}
		if !allowed {
			abortWithError(c, apperrors.NewForbiddenError("You do not have permission to perform this action",
				role+" cannot "+action+" "+resource))
			return
		}
		c.Next()
	}
}
