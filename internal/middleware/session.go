package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kuisduel/kuisduel-backend/internal/response"
	"github.com/kuisduel/kuisduel-backend/internal/service"
)

// CheckSingleDeviceSession validates the JWT's JTI against the active
// login session in Redis. A mismatch means the player logged in from
// another device and this token was superseded.
func CheckSingleDeviceSession(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		if err := authService.ValidatePlayerSession(c.Request.Context(), claims.PlayerID, claims.ID); err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
			return
		}

		c.Next()
	}
}
