package middlewares

import (
	"net/http"
	"runtime/debug"

	"arena/internal/handlers/response"
	"arena/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.Log.Error("Internal server error occurred",
					zap.Any("error", recovered),
					zap.String("stack", string(debug.Stack())),
					zap.String("method", c.Request.Method),
					zap.String("url", c.Request.URL.String()),
					zap.String("client_ip", c.ClientIP()),
				)

				response.Error(c, http.StatusInternalServerError, response.CodeInternalError)
				c.Abort()
			}
		}()
		c.Next()
	}
}
