// README: Bearer-token auth and role gating for the admin API.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"kiloadmin/internal/infra"
	"kiloadmin/internal/modules/auth"
)

const (
	callerUIDKey  = "caller_uid"
	callerRoleKey = "caller_role"
)

// Auth verifies the Authorization bearer token and stores the caller's
// UID and role on the context. Requests without a valid token get 401;
// tokens that do not carry an admin or staff role claim get 403.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimSpace(raw))
		if err != nil || token == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		claim, _ := token.Claims[infra.RoleClaim].(string)
		role := auth.Role(claim)
		if !role.Valid() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Set(callerUIDKey, token.UID)
		c.Set(callerRoleKey, role)
		c.Next()
	}
}

// CallerUID returns the authenticated subject, or "" before Auth ran.
func CallerUID(c *gin.Context) string {
	return c.GetString(callerUIDKey)
}

// CallerRole returns the caller's role; unauthenticated callers are staff.
func CallerRole(c *gin.Context) auth.Role {
	if v, ok := c.Get(callerRoleKey); ok {
		if r, ok := v.(auth.Role); ok {
			return r
		}
	}
	return auth.RoleStaff
}

// RequireRole lets the request through only for the listed roles.
func RequireRole(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := CallerRole(c)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}
