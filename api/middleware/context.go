package middleware

import (
	"context"

	"github.com/angelmondragon/labfunds-backend/internal/labs"
)

type contextKey string

const (
	ctxActorID contextKey = "actor_id"
	ctxLab     contextKey = "laboratory"
)

func ActorIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxActorID).(string); ok {
		return v
	}
	return ""
}

// LabFromContext returns the laboratory resolved by LabContext.
func LabFromContext(ctx context.Context) *labs.Laboratory {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxLab).(*labs.Laboratory); ok {
		return v
	}
	return nil
}

// WithActorID injects the acting person into the context.
func WithActorID(ctx context.Context, actorID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActorID, actorID)
}

// WithLab injects the resolved laboratory for downstream handlers.
func WithLab(ctx context.Context, lab *labs.Laboratory) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxLab, lab)
}
