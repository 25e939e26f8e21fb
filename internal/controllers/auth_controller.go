package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/triagedesk/backend/internal/apperrors"
	"github.com/triagedesk/backend/internal/config"
	"github.com/triagedesk/backend/internal/logger"
	"github.com/triagedesk/backend/internal/middleware"
	"github.com/triagedesk/backend/internal/models"
	"github.com/triagedesk/backend/internal/services"
	"golang.org/x/crypto/bcrypt"
)

type AuthController struct {
	directory *services.ProfileDirectory
	cfg       config.AuthConfig
}

func NewAuthController(directory *services.ProfileDirectory, cfg config.AuthConfig) *AuthController {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthController{directory: directory, cfg: cfg}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

type AuthResponse struct {
	Token     string          `json:"token"`
	User      *models.Profile `json:"user"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := ac.directory.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			err = apperrors.NewAuthError("Invalid credentials")
		}
		respondError(c, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(req.Password)); err != nil {
		logger.WithUser(profile.ID).Warn("Login with wrong password")
		respondError(c, apperrors.NewAuthError("Invalid credentials"))
		return
	}

	ac.respondWithToken(c, http.StatusOK, profile)
}

// Register creates a support profile; admins promote members afterwards
func (ac *AuthController) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), ac.cfg.BcryptCost)
	if err != nil {
		respondError(c, apperrors.NewBackendError("hash password", err))
		return
	}

	profile := &models.Profile{
		Email:    req.Email,
		Password: string(hashedPassword),
		FullName: req.FullName,
		Role:     models.RoleSupport,
	}
	if err := ac.directory.Create(c.Request.Context(), profile); err != nil {
		respondError(c, err)
		return
	}

	logger.WithUser(profile.ID).Info("Profile registered")
	ac.respondWithToken(c, http.StatusCreated, profile)
}

// Session returns the profile behind the presented token
func (ac *AuthController) Session(c *gin.Context) {
	profile, err := ac.directory.Get(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		if apperrors.IsNotFound(err) {
			err = apperrors.NewAuthError("Session no longer valid")
		}
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"user": profile})
}

// RefreshToken issues a new token carrying the profile's current role
func (ac *AuthController) RefreshToken(c *gin.Context) {
	profile, err := ac.directory.Get(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ac.respondWithToken(c, http.StatusOK, profile)
}

func (ac *AuthController) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()

	profile, err := ac.directory.Get(ctx, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.Password), []byte(req.CurrentPassword)); err != nil {
		respondError(c, apperrors.NewValidationError("Current password is incorrect"))
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), ac.cfg.BcryptCost)
	if err != nil {
		respondError(c, apperrors.NewBackendError("hash password", err))
		return
	}
	if err := ac.directory.SetPassword(ctx, profile.ID, string(hashedPassword)); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"message": "Password changed successfully"})
}

func (ac *AuthController) respondWithToken(c *gin.Context, status int, profile *models.Profile) {
	token, expiresAt, err := middleware.GenerateToken(ac.cfg.JWTSecret, ac.cfg.TokenTTL, profile)
	if err != nil {
		respondError(c, apperrors.NewBackendError("sign token", err))
		return
	}
	respondOK(c, status, AuthResponse{Token: token, User: profile, ExpiresAt: expiresAt})
}
