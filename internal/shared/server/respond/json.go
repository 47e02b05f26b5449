package respond

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusOK, payload)
}

// Attachment sets the headers for a download named fileName.
func Attachment(c *gin.Context, fileName, contentType string) {
	fileName = strings.NewReplacer(`"`, "", "\r", "", "\n", "", "\\", "").Replace(fileName)
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
}
