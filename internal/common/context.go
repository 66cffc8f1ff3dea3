// File: internal/common/context.go
package common

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// AuthorizationHeader is the header name for the authorization token.
	AuthorizationHeader = "Authorization"
	// AuthorizationTypeBearer is the prefix for Bearer tokens.
	AuthorizationTypeBearer = "Bearer"
	// CallerKey is the context key for the authenticated caller.
	CallerKey = "caller"
)

// Caller is the identity-and-privilege context every core operation receives.
// The core never resolves roles itself; the auth middleware fills these two
// booleans from the verified token and services branch on them only.
type Caller struct {
	UserID      uuid.UUID
	IsModerator bool
	IsStaff     bool
}

// IsPrivileged reports whether the caller may moderate content.
func (c Caller) IsPrivileged() bool {
	return c.IsModerator || c.IsStaff
}

// GetCallerFromContext retrieves the authenticated caller from the Gin
// context. The zero Caller (Nil UserID) means the request is anonymous.
func GetCallerFromContext(c *gin.Context) Caller {
	val, exists := c.Get(CallerKey)
	if !exists {
		return Caller{}
	}
	caller, ok := val.(Caller)
	if !ok {
		return Caller{}
	}
	return caller
}

// GetUserIDFromContext retrieves the user ID from the Gin context.
// Returns uuid.Nil if the request is anonymous.
func GetUserIDFromContext(c *gin.Context) uuid.UUID {
	return GetCallerFromContext(c).UserID
}
