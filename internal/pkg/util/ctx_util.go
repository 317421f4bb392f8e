package util

import (
	"context"

	"github.com/RoyceAzure/lab/checkout/internal/constants"
)

// GetUserIDFromContext 由middleware放入, 不存在時ok為false
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(constants.UserIDKey).(int64)
	return v, ok && v > 0
}

func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, constants.UserIDKey, userID)
}

func GetRequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(constants.RequestIDKey).(string)
	return v
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, constants.RequestIDKey, requestID)
}
