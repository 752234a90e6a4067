package middleware

import (
	"github.com/gin-gonic/gin"
	ierr "github.com/vircom/folio/internal/errors"
	"github.com/vircom/folio/internal/types"
)

// TenantMiddleware scopes the request to the tenant named in X-Tenant-ID.
// Authentication happens upstream; the header is trusted as is.
func TenantMiddleware(c *gin.Context) {
	tenantID := c.GetHeader(types.HeaderTenantID)
	if tenantID == "" {
		c.Error(ierr.NewError("tenant header missing").
			WithHintf("The %s header is required", types.HeaderTenantID).
			Mark(ierr.ErrValidation))
		c.Abort()
		return
	}

	userID := c.GetHeader(types.HeaderUserID)
	if userID == "" {
		userID = types.DefaultUserID
	}

	ctx := c.Request.Context()
	ctx = types.SetTenantID(ctx, tenantID)
	ctx = types.SetUserID(ctx, userID)
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

// SystemContextMiddleware runs cron routes outside any tenant; the handler
// fans out over tenants itself
func SystemContextMiddleware(c *gin.Context) {
	ctx := types.SetUserID(c.Request.Context(), types.DefaultUserID)
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}
