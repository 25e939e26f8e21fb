package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/triagedesk/backend/internal/apperrors"
	"github.com/triagedesk/backend/internal/logger"
	"github.com/triagedesk/backend/internal/middleware"
	"github.com/triagedesk/backend/internal/services"
	"github.com/triagedesk/backend/internal/storage"
)

const maxAvatarBytes = 2 << 20

type UserController struct {
	directory *services.ProfileDirectory
	store     storage.ObjectStore
}

// NewUserController builds the controller; store may be nil when object
// storage is not configured, which disables avatar uploads.
func NewUserController(directory *services.ProfileDirectory, store storage.ObjectStore) *UserController {
	return &UserController{directory: directory, store: store}
}

type UpdateUserRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (uc *UserController) GetCurrentUser(c *gin.Context) {
	profile, err := uc.directory.Get(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, profile)
}

func (uc *UserController) UpdateCurrentUser(c *gin.Context) {
	var req services.ProfilePatch
	if !bindJSON(c, &req) {
		return
	}
	profile, err := uc.directory.Update(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, profile)
}

func (uc *UserController) GetUsers(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)

	users, total, err := uc.directory.List(c.Request.Context(), c.Query("search"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"users": users,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

func (uc *UserController) UpdateUserRole(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req UpdateUserRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	profile, err := uc.directory.UpdateRole(c.Request.Context(), middleware.CurrentUserID(c), id, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, profile)
}

// UploadAvatar stores the multipart "avatar" image and points the profile
// at it
func (uc *UserController) UploadAvatar(c *gin.Context) {
	if uc.store == nil {
		respondError(c, apperrors.NewValidationError("Avatar uploads are not enabled"))
		return
	}
	userID := middleware.CurrentUserID(c)

	header, err := c.FormFile("avatar")
	if err != nil {
		respondError(c, apperrors.NewValidationError("avatar is required"))
		return
	}
	if header.Size > maxAvatarBytes {
		respondError(c, apperrors.NewValidationError("avatar must be 2MB or smaller"))
		return
	}
	contentType := header.Header.Get("Content-Type")
	key, err := storage.AvatarKey(userID, contentType)
	if err != nil {
		respondError(c, apperrors.NewValidationError("avatar must be a PNG, JPEG, GIF or WebP image"))
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, apperrors.NewValidationError("avatar could not be read"))
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	url, err := uc.store.Upload(ctx, key, file, header.Size, contentType)
	if err != nil {
		respondError(c, apperrors.NewUpstreamError("upload avatar", err))
		return
	}
	profile, err := uc.directory.SetAvatar(ctx, userID, url)
	if err != nil {
		if delErr := uc.store.Delete(ctx, key); delErr != nil {
			logger.WithError(delErr, "avatars").WithField("key", key).Warn("Orphaned avatar object")
		}
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, profile)
}
