package composables

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/f3nation/f3map/pkg/constants"
)

var (
	ErrNoUser = errors.New("user not found in context")
)

// WithLogger returns a new context carrying the request-scoped logger.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, constants.LoggerKey, logger)
}

// UseLogger returns the logger from the context, or a standard logger entry when none is set.
func UseLogger(ctx context.Context) *logrus.Entry {
	if logger, ok := ctx.Value(constants.LoggerKey).(*logrus.Entry); ok && logger != nil {
		return logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// WithUserID attaches the authenticated actor.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, constants.UserIDKey, userID)
}

func UseUserID(ctx context.Context) (int64, error) {
	id, ok := ctx.Value(constants.UserIDKey).(int64)
	if !ok || id <= 0 {
		return 0, ErrNoUser
	}
	return id, nil
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, constants.RequestIDKey, requestID)
}

func UseRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(constants.RequestIDKey).(string)
	return id, ok && id != ""
}
