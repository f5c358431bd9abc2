package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GenericMessage is the only text clients see for internal failures.
const GenericMessage = "An unexpected error happened"

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// ValidationFailed renders field-keyed messages alongside the submitted values
// so a form can be redisplayed.
func ValidationFailed(c *gin.Context, fields map[string]string, values any) {
	details := gin.H{"fields": fields}
	if values != nil {
		details["values"] = values
	}
	ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", details)
}

// Internal records err on the gin context for ErrorLogger and answers with
// the generic message.
func Internal(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", GenericMessage)
}
