package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ilyosdev/smeta-api/models"
)

// respondError translates the engine error taxonomy to HTTP once, so no
// handler invents its own mapping.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found", "code": "NOT_FOUND"})
	case errors.Is(err, models.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": "Transition not allowed from current status", "code": "INVALID_STATE"})
	case errors.Is(err, models.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Conflicting concurrent change, retry the operation", "code": "CONFLICT"})
	case errors.Is(err, models.ErrInsufficientPermissions):
		c.JSON(http.StatusForbidden, gin.H{"error": "Role not permitted for this operation", "code": "INSUFFICIENT_PERMISSIONS"})
	case errors.Is(err, models.ErrOverrun):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Reservation exceeds remaining budget", "code": "OVERRUN"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
