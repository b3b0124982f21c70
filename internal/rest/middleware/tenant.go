package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/petshopone/fiscal-service/internal/types"
)

const (
	headerTenantID    = "X-Tenant-ID"
	headerUserID      = "X-User-ID"
	headerAdminAccess = "X-Admin-Access"
)

// TenantMiddleware resolves the tenant scope of the request. Identity
// is asserted upstream by the API gateway; this service only consumes
// the headers it injects.
func TenantMiddleware(c *gin.Context) {
	tenantID := c.GetHeader(headerTenantID)
	if tenantID == "" {
		c.Error(ierr.NewError("missing tenant header").
			WithHint("X-Tenant-ID header is required").
			Mark(ierr.ErrPermissionDenied))
		c.Abort()
		return
	}

	userID := c.GetHeader(headerUserID)
	if userID == "" {
		userID = types.DefaultUserID
	}

	ctx := c.Request.Context()
	ctx = types.SetTenantID(ctx, tenantID)
	ctx = types.SetUserID(ctx, userID)
	if c.GetHeader(headerAdminAccess) == "true" {
		ctx = context.WithValue(ctx, types.CtxIsAdmin, true)
	}
	c.Request = c.Request.WithContext(ctx)

	c.Next()
}
