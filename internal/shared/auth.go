// File: internal/shared/auth.go

// Package shared holds interfaces that cross module boundaries, so that
// middleware and feature packages do not import each other directly.
package shared

import (
	"context"

	"agromarket_backend/internal/common"
)

// TokenVerifier resolves a bearer token to an authenticated caller.
// Identity management lives outside this service; the user module provides
// a lookup-backed implementation for the opaque API tokens it issues.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (common.Caller, error)
}
