package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CtxEmail = "user_email"
)

// RequireUser validates the bearer token on every request and stores the
// verified email in the context. All verification failures produce the
// same 401 with a re-authentication challenge; the specific reason is
// never surfaced to the client.
func RequireUser(verifier *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			unauthorized(c)
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			unauthorized(c)
			return
		}

		c.Set(CtxEmail, claims.Email)
		c.Next()
	}
}

// UserEmail extracts the verified email set by RequireUser.
func UserEmail(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxEmail))
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid token"})
	c.Abort()
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return bearerToken[7:]
	}
	return ""
}
