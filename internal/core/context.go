package core

import "context"

type contextKey string

const ctxKeyActor contextKey = "lead_actor"

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID    string
	Label string // email or display name, shown in history
}

// DisplayName returns Label, falling back to ID.
func (a Actor) DisplayName() string {
	if a.Label != "" {
		return a.Label
	}
	return a.ID
}

// ContextWithActor attaches the acting user to ctx.
func ContextWithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKeyActor, a)
}

// ActorFromContext returns the acting user, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKeyActor).(Actor)
	if !ok || a.ID == "" {
		return Actor{}, false
	}
	return a, true
}

// requireActor returns ErrUnauthenticated when ctx carries no actor.
func requireActor(ctx context.Context) (Actor, error) {
	a, ok := ActorFromContext(ctx)
	if !ok {
		return Actor{}, ErrUnauthenticated
	}
	return a, nil
}
