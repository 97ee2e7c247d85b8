package handlers

import (
	"net/http"

	"venue_pos_backend/internal/middleware"
	"venue_pos_backend/internal/models"
	"venue_pos_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// AuthHandler holds the authentication service.
type AuthHandler struct {
	authService services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(as services.AuthService) *AuthHandler {
	return &AuthHandler{authService: as}
}

// RegisterUser creates a staff account. Admin only.
func (h *AuthHandler) RegisterUser(c *gin.Context) {
	var req models.RegistrationPayload
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "register user")
		return
	}
	c.JSON(http.StatusCreated, user)
}

// LoginUser exchanges credentials for an access token.
func (h *AuthHandler) LoginUser(c *gin.Context) {
	var req models.Credentials
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "login")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetCurrentUser returns the profile of the authenticated caller.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	actor := middleware.CurrentActor(c)
	user, err := h.authService.Profile(c.Request.Context(), actor.UserID)
	if err != nil {
		respondServiceError(c, err, "retrieve user profile")
		return
	}
	c.JSON(http.StatusOK, user)
}
