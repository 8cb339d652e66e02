package logger

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type loggerKey struct{}

func AddToContext(ctx context.Context, ctxLogger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, ctxLogger)
}

func GetFromContext(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerKey{}).(*slog.Logger)
	if !ok {
		logger = slog.Default()
	}

	return logger
}

// WithOperation returns a context whose logger tags every record with the
// operation name and a fresh correlation id.
func WithOperation(ctx context.Context, op string) (context.Context, *slog.Logger) {
	l := GetFromContext(ctx).With("op", op, "op_id", uuid.NewString())
	return AddToContext(ctx, l), l
}
