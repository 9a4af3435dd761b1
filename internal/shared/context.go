package shared

import "context"

// Role values recognised by the API.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USUARIO"
)

// Actor identifies who performs a ledger operation.
type Actor struct {
	ID   int64
	Role string
}

// IsAdmin reports whether the actor may run privileged operations.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
