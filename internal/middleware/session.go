package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/cloudmaster/examprep/internal/response"
	"github.com/cloudmaster/examprep/internal/service"
)

// RejectRevokedTokens refuses tokens that were logged out. Anonymous requests
// pass. If the revocation store is unreachable the token is trusted so a
// Redis outage does not sign everyone out.
func RejectRevokedTokens(authService *service.AuthService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || claims.ID == "" {
			c.Next()
			return
		}

		revoked, err := authService.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			log.Warn().Err(err).Str("jti", claims.ID).Msg("Revocation check failed")
			c.Next()
			return
		}
		if revoked {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRevoked)
			return
		}

		c.Next()
	}
}
