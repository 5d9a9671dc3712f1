package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"circdesk/internal/auth"
	"circdesk/internal/models"
)

const (
	ctxActor  = "actor"
	ctxClaims = "claims"
	ctxToken  = "token"
)

// AuthMiddleware validates bearer tokens and injects the acting user into the
// request context. With a nil blacklist, revocation checks are skipped and
// logout is a client-side concern.
type AuthMiddleware struct {
	secret    string
	blacklist *auth.TokenBlacklist
}

func NewAuthMiddleware(secret string, blacklist *auth.TokenBlacklist) *AuthMiddleware {
	return &AuthMiddleware{secret: secret, blacklist: blacklist}
}

// RequireAuth rejects requests without a valid, unrevoked session token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}
		tokenStr := parts[1]

		if m.blacklist != nil {
			revoked, err := m.blacklist.IsRevoked(c.Request.Context(), tokenStr)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to verify token"})
				return
			}
			if revoked {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has been revoked"})
				return
			}
		}

		claims, err := auth.ValidateToken(m.secret, tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ctxActor, claims.User())
		c.Set(ctxClaims, claims)
		c.Set(ctxToken, tokenStr)
		c.Next()
	}
}

// RequireRole rejects authenticated requests whose actor has a different role.
func RequireRole(role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorFrom(c)
		if actor == nil || actor.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "operation not permitted for this role"})
			return
		}
		c.Next()
	}
}

func actorFrom(c *gin.Context) *models.User {
	if v, ok := c.Get(ctxActor); ok {
		if actor, ok := v.(*models.User); ok {
			return actor
		}
	}
	return nil
}

func claimsFrom(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ctxClaims); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

func tokenFrom(c *gin.Context) string {
	if v, ok := c.Get(ctxToken); ok {
		if token, ok := v.(string); ok {
			return token
		}
	}
	return ""
}
