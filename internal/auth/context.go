// Package auth carries the signed-in owner through request contexts.
// Every owner-scoped query reads its owner id from here.
package auth

import "context"

type identityKey struct{}

// Identity is the authenticated owner and the session that proved it.
type Identity struct {
	OwnerID   int64
	SessionID int64
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.OwnerID != 0
}

// OwnerID returns 0 for unauthenticated contexts.
func OwnerID(ctx context.Context) int64 {
	id, _ := FromContext(ctx)
	return id.OwnerID
}

func SessionID(ctx context.Context) int64 {
	id, _ := FromContext(ctx)
	return id.SessionID
}
