package appctx

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const (
	userIDKey   ctxKey = "userID"
	userNameKey ctxKey = "userName"
)

// WithUserID добавляет userID в контекст
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID извлекает userID из контекста
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

func WithUserName(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, userNameKey, username)
}

func UserName(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(userNameKey).(string)
	return name, ok && name != ""
}
