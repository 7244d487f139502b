package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	ContextKeyTeamID contextKey = "team_id"
	ContextKeyUserID contextKey = "user_id"
)

// WithPrincipal stores the authenticated team and user on ctx.
func WithPrincipal(ctx context.Context, teamID, userID uuid.UUID) context.Context {
	ctx = context.WithValue(ctx, ContextKeyTeamID, teamID)
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

func TeamIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ContextKeyTeamID).(uuid.UUID)
	return v, ok
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ContextKeyUserID).(uuid.UUID)
	return v, ok
}
