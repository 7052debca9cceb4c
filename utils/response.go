package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JsonResponse writes the standard success envelope.
func JsonResponse(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{
		"success": true,
		"message": message,
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func ErrorResponse(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   message,
	})
}

// ValidationErrorResponse writes a 422 with per-field messages.
func ValidationErrorResponse(c *gin.Context, errors map[string][]string) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
		"success": false,
		"message": "Validation failed",
		"errors":  errors,
	})
}

// ServerErrorResponse logs err and answers with a generic 500.
func ServerErrorResponse(c *gin.Context, action string, err error) {
	Log.WithError(err).WithField("path", c.FullPath()).Error(action)
	ErrorResponse(c, http.StatusInternalServerError, "Something went wrong")
}

// NoRecordsResponse answers an empty listing.
func NoRecordsResponse(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
	})
}
