// Package auth defines the access-token contract used to authenticate
// customer requests. Token issuance (login, OTP) is handled elsewhere; this
// service only verifies presented tokens against their stored HMAC hashes.
package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrTokenNotFound is returned when no token matches the presented hash.
var ErrTokenNotFound = errors.New("access token not found")

// TokenInfo identifies the customer behind a validated access token.
type TokenInfo struct {
	CustomerID string
	KeyHash    string
	Label      string
}

// Repository provides lookup of access tokens by their HMAC-SHA256 hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*TokenInfo, error)
}
