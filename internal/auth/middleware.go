package auth

import (
	"net/http"
	"strings"
)

// Middleware validates JWTs and enforces RBAC.
// With an empty secret every non-exempt request runs as the fallback identity.
type Middleware struct {
	Secret   []byte
	Policy   Policy
	Fallback Identity
}

// NewMiddleware constructs an auth middleware.
func NewMiddleware(secret []byte, policy Policy) *Middleware {
	return &Middleware{Secret: secret, Policy: policy}
}

// NewOpenMiddleware constructs a middleware that attaches a fixed identity
// to every request the policy does not exempt, for deployments without JWT.
func NewOpenMiddleware(fallback Identity, policy Policy) *Middleware {
	return &Middleware{Fallback: fallback, Policy: policy}
}

// Wrap applies auth and RBAC to the handler.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Policy.IsExempt(r) {
			next.ServeHTTP(w, r)
			return
		}
		if len(m.Secret) == 0 {
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), m.Fallback)))
			return
		}

		required, ok := m.Policy.RequiredRole(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := ParseJWT(extractToken(r), m.Secret)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		role, _ := NormalizeRole(claims.Role)
		if !RoleAtLeast(role, required) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		ctx := WithIdentity(r.Context(), Identity{TenantID: claims.TenantID, Role: role, Subject: claims.Subject})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken reads the bearer header, or the access_token query parameter
// for EventSource clients that cannot set headers.
func extractToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		if r.URL.Path == "/api/v1/stream" {
			return r.URL.Query().Get("access_token")
		}
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
