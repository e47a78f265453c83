package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"maintenance-backend/internal/model"
)

// Context keys set by the auth guard.
const (
	CtxUserID = "userID"
	CtxRole   = "userRole"
)

// authClaims are the claims this service reads from a bearer token. Tokens
// are issued by the external identity service; this layer only verifies and
// extracts.
type authClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Auth validates the Authorization bearer token and stores the acting user's
// id and role in the request context.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims := &authClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid || claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(CtxUserID, claims.Subject)
		c.Set(CtxRole, model.Role(claims.Role))
		c.Next()
	}
}

// RequireRoles rejects requests whose acting role is not in the allowed set.
func RequireRoles(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(CtxRole)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
	}
}

// UserID returns the authenticated user id from the context.
func UserID(c *gin.Context) string {
	return c.GetString(CtxUserID)
}

// Role returns the authenticated role from the context.
func Role(c *gin.Context) model.Role {
	if v, ok := c.Get(CtxRole); ok {
		if r, ok := v.(model.Role); ok {
			return r
		}
	}
	return ""
}
