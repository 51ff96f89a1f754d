package store

import (
	"context"
	"log/slog"
	"time"
)

type loggedStore struct {
	next   Store
	logger *slog.Logger
}

// Logged wraps next so that every fetch is logged at debug level and every
// failure at error level.
func Logged(next Store, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &loggedStore{
		next:   next,
		logger: logger.With(slog.String("name", "store")),
	}
}

func (s *loggedStore) Fetch(ctx context.Context, bundleID, suffix string) (Templates, bool, error) {
	start := time.Now()
	t, found, err := s.next.Fetch(ctx, bundleID, suffix)
	attrs := []any{
		slog.String("bundle", bundleID),
		slog.String("suffix", suffix),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "template fetch failed", append(attrs, slog.Any("error", err))...)
		return nil, false, err
	}
	s.logger.DebugContext(ctx, "template fetch", append(attrs, slog.Bool("found", found), slog.Int("keys", len(t)))...)
	return t, found, nil
}
