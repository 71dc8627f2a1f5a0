package user

import "context"

type Role string

const (
	RoleOwner    Role = "owner"    // Company owner - full access
	RoleManager  Role = "manager"  // Can review and correct team time records
	RoleEmployee Role = "employee" // Regular employee
)

// Actor is the authenticated caller of an engine operation.
type Actor struct {
	UserID     string
	EmployeeID string
	Role       Role
}

// IsElevated checks if the actor may act on records owned by other employees.
func (a Actor) IsElevated() bool {
	return a.Role == RoleOwner || a.Role == RoleManager
}

// CanAccess checks if the actor owns the record or holds an elevated role.
func (a Actor) CanAccess(ownerEmployeeID string) bool {
	return a.IsElevated() || (a.EmployeeID != "" && a.EmployeeID == ownerEmployeeID)
}

type actorKey struct{}

// WithActor stores the actor in ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor placed in ctx by the auth middleware.
func ActorFromContext(ctx context.Context) (Actor, error) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || actor.EmployeeID == "" {
		return Actor{}, ErrActorMissing
	}
	return actor, nil
}
