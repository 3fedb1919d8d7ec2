package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response envelope shared by every handler.  Success responses carry
// {"success": true, "data": ...}; errors carry a machine-readable code next
// to the human-readable message so clients can branch without string
// matching.

func respondSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   msg,
		"code":    code,
	})
}

// respondList adds pagination metadata to a successful collection response.
func respondList(c *gin.Context, items interface{}, total, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    items,
		"meta": gin.H{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}
