package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cloudmaster/examprep/internal/response"
)

// RequireAdmin checks that the token belongs to a catalog administrator.
// Must run after OptionalAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		if !claims.IsAdmin {
			response.AbortFail(c, http.StatusForbidden, response.ErrAdminAccessOnly)
			return
		}

		c.Next()
	}
}
