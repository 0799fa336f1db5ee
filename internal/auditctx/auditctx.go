package auditctx

import "context"

// Actor identifies who is acting in the current request, plus the organization
// scope when the route targets one. Services copy these attributes onto the
// audit rows they append.
type Actor struct {
	UserID         string
	Username       string
	OrganizationID string
	IPAddress      string
	UserAgent      string
}

type actorContextKey struct{}

// WithActor injects the request actor into the context for downstream service layers.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// WithOrganization narrows the actor to the organization being acted on. The
// actor set by the authentication layer is preserved; only the scope changes.
func WithOrganization(ctx context.Context, orgID string) context.Context {
	actor, _ := FromContext(ctx)
	actor.OrganizationID = orgID
	return WithActor(ctx, actor)
}

// FromContext extracts previously stored actor metadata from the context.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
