package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/ninekrua/pos-backend/pkg/db/models"
	"github.com/ninekrua/pos-backend/pkg/outbox"
)

type contextKey string

const (
	ctxUserID     contextKey = "user_id"
	ctxRole       contextKey = "actor_role"
	ctxGuestTable contextKey = "guest_table"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// GuestTableFromContext returns the dining table a guest session was
// authorized against, or nil outside guest routes.
func GuestTableFromContext(ctx context.Context) *models.DiningTable {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxGuestTable).(*models.DiningTable); ok {
		return v
	}
	return nil
}

// WithUserID injects the authenticated user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithGuestTable injects the authorized dining table for guest handlers.
func WithGuestTable(ctx context.Context, table *models.DiningTable) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxGuestTable, table)
}

// ActorFromContext builds the event actor reference for the current request:
// a staff user when authenticated, the table code on guest routes, nil when
// neither is present.
func ActorFromContext(ctx context.Context) *outbox.ActorRef {
	if raw := UserIDFromContext(ctx); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return &outbox.ActorRef{UserID: &id, Role: RoleFromContext(ctx)}
		}
	}
	if table := GuestTableFromContext(ctx); table != nil {
		return &outbox.ActorRef{TableCode: table.Code, Role: "guest"}
	}
	return nil
}
