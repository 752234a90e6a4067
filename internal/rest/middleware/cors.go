package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vircom/folio/internal/types"
)

var allowedHeaders = strings.Join([]string{
	"Content-Type",
	"Authorization",
	types.HeaderRequestID,
	types.HeaderTenantID,
	types.HeaderUserID,
}, ", ")

func CORSMiddleware(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
	c.Header("Access-Control-Allow-Headers", allowedHeaders)
	c.Header("Access-Control-Expose-Headers", types.HeaderRequestID)

	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}
