package auth

import "context"

type contextKey string

const (
	contextKeyTenant  contextKey = "console.tenant_id"
	contextKeyRole    contextKey = "console.role"
	contextKeySubject contextKey = "console.subject"
)

// Identity is the authenticated caller attached to a request.
type Identity struct {
	TenantID string
	Role     Role
	Subject  string
}

// WithIdentity stores auth identity details in context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	ctx = context.WithValue(ctx, contextKeyTenant, id.TenantID)
	ctx = context.WithValue(ctx, contextKeyRole, id.Role)
	ctx = context.WithValue(ctx, contextKeySubject, id.Subject)
	return ctx
}

// IdentityFromContext extracts the caller identity; ok is false when no
// tenant is attached.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id := Identity{
		TenantID: TenantIDFromContext(ctx),
		Role:     RoleFromContext(ctx),
		Subject:  SubjectFromContext(ctx),
	}
	return id, id.TenantID != ""
}

// TenantIDFromContext extracts tenant id from context.
func TenantIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if tenantID, ok := ctx.Value(contextKeyTenant).(string); ok {
		return tenantID
	}
	return ""
}

// RoleFromContext extracts role from context.
func RoleFromContext(ctx context.Context) Role {
	if ctx == nil {
		return ""
	}
	if role, ok := ctx.Value(contextKeyRole).(Role); ok {
		return role
	}
	return ""
}

// SubjectFromContext extracts subject from context.
func SubjectFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if subject, ok := ctx.Value(contextKeySubject).(string); ok {
		return subject
	}
	return ""
}
