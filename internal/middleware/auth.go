// File: internal/middleware/auth.go
package middleware

import (
	"strings"

	"agromarket_backend/internal/common"
	"agromarket_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthMiddleware creates a Gin middleware that resolves the bearer token to
// a caller and stores it in the request context.
func AuthMiddleware(verifier shared.TokenVerifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(common.AuthorizationHeader)
		if authHeader == "" {
			logger.Debug("Authorization header missing")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header is required."))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], common.AuthorizationTypeBearer) {
			logger.Debug("Authorization header format invalid")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header format must be 'Bearer <token>'."))
			return
		}

		caller, err := verifier.Verify(c.Request.Context(), parts[1])
		if err != nil {
			logger.Warn("Token verification failed", zap.Error(err))
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Invalid or expired token."))
			return
		}

		c.Set(common.CallerKey, caller)
		c.Next()
	}
}

// OptionalAuthMiddleware resolves the caller when a token is present but
// lets anonymous requests through. Public feed and detail endpoints use it
// so owners see their own non-public posts.
func OptionalAuthMiddleware(verifier shared.TokenVerifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(common.AuthorizationHeader)
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], common.AuthorizationTypeBearer) {
			c.Next()
			return
		}

		caller, err := verifier.Verify(c.Request.Context(), parts[1])
		if err != nil {
			logger.Debug("Ignoring invalid token on optional-auth route", zap.Error(err))
			c.Next()
			return
		}

		c.Set(common.CallerKey, caller)
		c.Next()
	}
}

// RequireModerator gates a route group to callers holding moderator or
// staff privileges.
func RequireModerator() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := common.GetCallerFromContext(c)
		if caller.UserID == uuid.Nil {
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authentication is required."))
			return
		}
		if !caller.IsPrivileged() {
			common.RespondWithError(c, common.ErrForbidden.WithDetails("You do not have sufficient permissions for this resource."))
			return
		}
		c.Next()
	}
}

// RequireStaff gates a route group to staff callers only.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := common.GetCallerFromContext(c)
		if caller.UserID == uuid.Nil {
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authentication is required."))
			return
		}
		if !caller.IsStaff {
			common.RespondWithError(c, common.ErrForbidden.WithDetails("You do not have sufficient permissions for this resource."))
			return
		}
		c.Next()
	}
}
