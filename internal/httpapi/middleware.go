package httpapi

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/cyberhelp/internal/ratelimit"
	"github.com/tyemirov/cyberhelp/pkg/secret"
)

// rateLimitMiddleware rejects clients over their submission budget. Limiter errors let the
// request through.
func rateLimitMiddleware(limiter ratelimit.Limiter, logger *slog.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		allowed, err := limiter.Allow(contextGin.Request.Context(), contextGin.ClientIP())
		if err != nil {
			logger.Warn("rate_limit_unavailable", "error", err)
			contextGin.Next()
			return
		}
		if !allowed {
			contextGin.AbortWithStatusJSON(http.StatusTooManyRequests, submissionResponse{Message: messageTooManySubmissions})
			return
		}
		contextGin.Next()
	}
}

func bodyLimitMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		if contextGin.Request.ContentLength > maxBytes {
			contextGin.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, submissionResponse{Message: messagePayloadTooLarge})
			return
		}
		contextGin.Request.Body = http.MaxBytesReader(contextGin.Writer, contextGin.Request.Body, maxBytes)
		contextGin.Next()
	}
}

// authMiddleware expects "Authorization: Bearer <token>".
func authMiddleware(requiredToken string) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		authHeader := contextGin.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		tokenValue := strings.TrimPrefix(authHeader, "Bearer ")
		if !secret.Matches(tokenValue, requiredToken) {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		contextGin.Next()
	}
}
