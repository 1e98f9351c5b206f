package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/parceldrop/parceldrop-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxRole     contextKey = "actor_role"
	ctxVerified contextKey = "verified"
)

// Actor is the authenticated caller seeded by the Auth middleware.
type Actor struct {
	UserID   uuid.UUID
	Role     enums.ActorRole
	Verified bool
}

// ActorFromContext returns the authenticated actor, false when the request
// never passed the Auth middleware.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	userID, ok := ctx.Value(ctxUserID).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return Actor{}, false
	}
	role, _ := ctx.Value(ctxRole).(enums.ActorRole)
	verified, _ := ctx.Value(ctxVerified).(bool)
	return Actor{UserID: userID, Role: role, Verified: verified}, true
}

// WithActor seeds the context with an actor. Used by Auth and by tests.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, actor.UserID)
	ctx = context.WithValue(ctx, ctxRole, actor.Role)
	return context.WithValue(ctx, ctxVerified, actor.Verified)
}
