package handlers

import (
	"net/http"

	"github.com/game-store-project/game-store/apperr"
	"github.com/game-store-project/game-store/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// writeError is the only place where error kinds become status codes.
// Internal causes go to the log, the client gets the public message.
func writeError(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": apperr.Message(err)})
}

// bindJSON decodes and validates the request body into dst.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return false
	}
	if err := utils.ValidateStruct(dst); err != nil {
		utils.ValidationErrorResponse(c, err)
		return false
	}
	return true
}

// pathID parses the named path parameter as a UUID v4.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := utils.ParseUUID(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return uuid.Nil, false
	}
	return id, true
}
