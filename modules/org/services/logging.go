package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/f3nation/f3map/modules/org/domain/updaterequest"
	"github.com/f3nation/f3map/pkg/composables"
)

func loggerFromContext(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return composables.UseLogger(ctx)
}

func logWithFields(ctx context.Context, level logrus.Level, msg string, fields logrus.Fields) {
	loggerFromContext(ctx).WithFields(fields).Log(level, msg)
}

func requestFields(ctx context.Context, id uuid.UUID, kind updaterequest.Kind, actorID int64) logrus.Fields {
	fields := logrus.Fields{
		"update_request_id": id.String(),
		"request_type":      string(kind),
		"actor_id":          actorID,
	}
	if requestID, ok := composables.UseRequestID(ctx); ok {
		fields["request_id"] = requestID
	}
	return fields
}

// logRejected logs a failed submit/approve/reject at a level matching the cause.
func logRejected(ctx context.Context, msg string, fields logrus.Fields, err error) {
	var svcErr *ServiceError
	level := logrus.ErrorLevel
	if errors.As(err, &svcErr) {
		fields["error_code"] = svcErr.Code
		if svcErr.Status < 500 {
			level = logrus.InfoLevel
		}
	}
	fields["error"] = err.Error()
	logWithFields(ctx, level, msg, fields)
}
