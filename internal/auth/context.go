package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/juggajay/site-proof-sub006/internal/access"
)

type contextKey string

const (
	membershipKey contextKey = "membership"
	claimsKey     contextKey = "tokenClaims"
)

// WithMembership stores the caller's resolved membership for the rest of the request
func WithMembership(ctx context.Context, m *access.Membership) context.Context {
	return context.WithValue(ctx, membershipKey, m)
}

// MembershipFromContext returns the membership resolved by Authenticate
func MembershipFromContext(ctx context.Context) (*access.Membership, bool) {
	m, ok := ctx.Value(membershipKey).(*access.Membership)
	return m, ok && m != nil
}

// MustMembership returns the membership or panics. Only call it behind Authenticate.
func MustMembership(ctx context.Context) *access.Membership {
	m, ok := MembershipFromContext(ctx)
	if !ok {
		panic("membership not found in context")
	}
	return m
}

// WithClaims stores the verified token claims
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext returns the verified token claims
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// UserID returns the authenticated user id, or uuid.Nil
func UserID(ctx context.Context) uuid.UUID {
	if m, ok := MembershipFromContext(ctx); ok {
		return m.UserID
	}
	return uuid.Nil
}
