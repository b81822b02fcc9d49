package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kuisduel/kuisduel-backend/internal/middleware"
	"github.com/kuisduel/kuisduel-backend/internal/model"
	"github.com/kuisduel/kuisduel-backend/internal/response"
	"github.com/kuisduel/kuisduel-backend/internal/service"
	"github.com/kuisduel/kuisduel-backend/internal/validator"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService   *service.AuthService
	playerService *service.PlayerService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, playerService *service.PlayerService) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		playerService: playerService,
	}
}

// Register godoc
// POST /api/v1/auth/register
// Creates a player account with an empty wallet.
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, fields)
		return
	}

	player, err := h.playerService.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			response.Fail(c, http.StatusConflict, response.ErrConflict)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"player": gin.H{
			"id":           player.ID,
			"username":     player.Username,
			"display_name": player.DisplayName,
		},
	})
}

// Login godoc
// POST /api/v1/auth/login
// Checks credentials and issues a JWT. A new login replaces any existing
// session for the same player.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrValidation, fields)
		return
	}

	token, player, err := h.playerService.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token": token,
		"player": gin.H{
			"id":           player.ID,
			"username":     player.Username,
			"display_name": player.DisplayName,
		},
	})
}

// Me godoc
// GET /api/v1/auth/me
// Returns the profile of the currently authenticated player.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	player, err := h.playerService.GetByID(c.Request.Context(), claims.PlayerID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"player": gin.H{
			"id":           player.ID,
			"username":     player.Username,
			"display_name": player.DisplayName,
			"created_at":   player.CreatedAt,
		},
	})
}

// Logout godoc
// POST /api/v1/auth/logout
// Invalidates the player's login session.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims.PlayerID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
