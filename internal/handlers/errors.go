package handlers

import (
	"errors"
	"net/http"

	"venue_pos_backend/internal/services"
	"venue_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// respondServiceError maps a service error onto the API error envelope. action names the failed
// operation in the log and in the message of unexpected errors.
func respondServiceError(c *gin.Context, err error, action string) {
	var shortage *services.InsufficientStockError
	switch {
	case errors.As(err, &shortage):
		utils.LogWarn("Order rejected for insufficient stock", map[string]interface{}{"action": action, "shortages": len(shortage.Shortages)})
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnprocessableEntity, utils.ErrCodeInsufficientStock,
			"Insufficient stock", shortage.Shortages))
	case errors.Is(err, services.ErrValidation):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, err.Error(), nil))
	case errors.Is(err, services.ErrNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, err.Error(), nil))
	case errors.Is(err, services.ErrInvalidTransition):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeInvalidTransition, err.Error(), nil))
	case errors.Is(err, services.ErrAuthorizationDenied):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, err.Error(), nil))
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid username or password.", nil))
	case errors.Is(err, services.ErrAlreadyOpen),
		errors.Is(err, services.ErrAlreadyClosed),
		errors.Is(err, services.ErrProductInUse),
		errors.Is(err, services.ErrProductNameExists),
		errors.Is(err, services.ErrUsernameExists),
		errors.Is(err, services.ErrTicketInventoryExceeded):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, err.Error(), nil))
	default:
		utils.LogError(err, action+" failed")
		utils.RespondInternal(c, "Failed to "+action+".")
	}
}

// bindJSON binds the body into dst and answers 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed,
			"Invalid request payload: "+err.Error(), nil))
		return false
	}
	return true
}
