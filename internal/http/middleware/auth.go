// README: Bearer-token auth; resolves the caller into an identity principal.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"lifelink/internal/identity"
	"lifelink/internal/infra"
)

const (
	ctxUID       = "caller_uid"
	ctxRole      = "caller_role"
	ctxPrincipal = "caller_principal"
)

// Auth rejects requests without a verifiable "Authorization: Bearer" token.
// The token's "role" claim selects the principal kind.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), raw)
		if err != nil || token == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		role, _ := token.Claims["role"].(string)
		p, err := identity.FromClaims(token.UID, role)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(ctxUID, token.UID)
		c.Set(ctxRole, string(p.Role()))
		c.Set(ctxPrincipal, p)
		c.Next()
	}
}

func CallerUID(c *gin.Context) string {
	return c.GetString(ctxUID)
}

func CallerRole(c *gin.Context) string {
	return c.GetString(ctxRole)
}

// Principal returns the authenticated caller, or nil outside Auth.
func Principal(c *gin.Context) identity.Principal {
	v, ok := c.Get(ctxPrincipal)
	if !ok {
		return nil
	}
	p, _ := v.(identity.Principal)
	return p
}
