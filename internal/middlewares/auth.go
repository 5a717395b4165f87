package middlewares

import (
	"net/http"

	"arena/internal/handlers/response"
	"arena/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	userContextKey     = "userID"
	usernameContextKey = "username"
	roleContextKey     = "role"
)

// AuthMiddleware enforces authentication. It validates the access token from
// the cookie and sets the caller's id and role in the context.
func AuthMiddleware(tokenService *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie("access_token")
		if err != nil {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized)
			c.Abort()
			return
		}

		claims, err := tokenService.ValidateToken(tokenString)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized)
			c.Abort()
			return
		}

		c.Set(userContextKey, claims.UserID)
		c.Set(usernameContextKey, claims.Username)
		c.Set(roleContextKey, claims.Role)
		c.Next()
	}
}

// CallerID returns the authenticated user's id set by AuthMiddleware.
func CallerID(c *gin.Context) int {
	return c.GetInt(userContextKey)
}

// CallerRole returns the authenticated user's role set by AuthMiddleware.
func CallerRole(c *gin.Context) string {
	return c.GetString(roleContextKey)
}
