// Package auth resolves the acting account for every engine call. The engine
// never issues or validates credentials beyond verifying the bearer token;
// identity is always carried as an explicit Actor in the request context,
// never read from shared mutable state.
package auth

import (
	"context"

	"github.com/google/uuid"
)

// Roles understood by the engine.
const (
	RoleAdmin    = "admin"
	RoleNurse    = "nurse"
	RoleGuardian = "guardian"
)

// Actor identifies the already-authenticated account behind a request.
type Actor struct {
	AccountID   uuid.UUID `json:"account_id"`
	Role        string    `json:"role"`
	DisplayName string    `json:"display_name"`
}

// IsNurse reports whether the actor holds the nurse role.
func (a Actor) IsNurse() bool { return a.Role == RoleNurse }

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// IsGuardian reports whether the actor holds the guardian role.
func (a Actor) IsGuardian() bool { return a.Role == RoleGuardian }

type contextKey string

const actorKey contextKey = "actor"

// WithActor returns a context carrying the actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext retrieves the actor from context. The second return is
// false when no authentication middleware ran.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}
