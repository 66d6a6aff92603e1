package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sncop/coursestore/internal/storage"
)

// fail writes the error envelope: success=false, a human-readable message,
// and the underlying cause.
func fail(c *gin.Context, status int, message string, err error) {
	body := gin.H{
		"success": false,
		"message": message,
	}
	if err != nil {
		body["error"] = err.Error()
	}
	c.JSON(status, body)
}

// failStore maps a storage error onto the envelope with the right status.
func failStore(c *gin.Context, message string, err error) {
	fail(c, statusFor(err), message, err)
}

// statusFor maps storage error codes to HTTP statuses.
func statusFor(err error) int {
	switch storage.ErrCode(err) {
	case storage.CodeNotFound:
		return http.StatusNotFound
	case storage.CodeInvalidKind, storage.CodeMissingUnit,
		storage.CodeValidation, storage.CodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
