package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/vidtube/backend/internal/apperror"
)

// Span times one service operation and logs its outcome.
type Span struct {
	name   string
	logger *slog.Logger
	start  time.Time
}

// StartSpan derives a logger tagged with the operation name and stores it on
// the returned context so nested calls log under the same operation.
func StartSpan(ctx context.Context, name string, attrs ...any) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := FromContext(ctx).With(slog.String("op", name))
	if len(attrs) > 0 {
		logger = logger.With(attrs...)
	}

	return WithLogger(ctx, logger), &Span{name: name, logger: logger, start: time.Now()}
}

// End logs the duration of the span. Failures outside the client-facing
// taxonomy are logged at error level, rejections at debug.
func (s *Span) End(err error) {
	if s == nil {
		return
	}
	elapsed := slog.Duration("duration", time.Since(s.start))
	switch {
	case err == nil:
		s.logger.Debug("operation completed", elapsed)
	case apperror.KindOf(err) != apperror.KindInternal:
		s.logger.Debug("operation rejected", elapsed, slog.String("reason", err.Error()))
	default:
		s.logger.Error("operation failed", elapsed, slog.Any("error", err))
	}
}
