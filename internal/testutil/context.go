package testutil

import (
	"context"

	"github.com/vircom/folio/internal/types"
)

func SetupContext() context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, types.CtxTenantID, types.DefaultTenantID)
	ctx = context.WithValue(ctx, types.CtxUserID, types.DefaultUserID)
	ctx = context.WithValue(ctx, types.CtxRequestID, types.GenerateUUID())
	return ctx
}

// WithTenant returns ctx scoped to another tenant
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return types.SetTenantID(ctx, tenantID)
}
