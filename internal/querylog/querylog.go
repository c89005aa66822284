// Package querylog records every answered query and serves the analytics
// reads over that history.
package querylog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notely/assist/internal/models"
	"github.com/notely/assist/internal/storage"
)

// Log is the append-only interaction history. Entries are immutable once
// appended; retention is left to operators.
type Log struct {
	storage storage.Storage
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Log) {
		l.logger = logger
	}
}

// withClock overrides the clock in tests.
func withClock(now func() time.Time) Option {
	return func(l *Log) {
		l.now = now
	}
}

// NewLog creates a query log over the given storage.
func NewLog(st storage.Storage, opts ...Option) *Log {
	l := &Log{
		storage: st,
		logger:  zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append records one interaction. ID and CreatedAt are assigned here; content
// is never validated or rejected. Fails only when storage is unavailable.
func (l *Log) Append(ctx context.Context, userID *string, query, reply, intentLabel, channel string, metadata map[string]string) (*models.QueryLogEntry, error) {
	entry := &models.QueryLogEntry{
		ID:        uuid.New().String(),
		UserID:    userID,
		Query:     query,
		Reply:     reply,
		Intent:    intentLabel,
		Channel:   channel,
		Metadata:  metadata,
		CreatedAt: l.now(),
	}
	if err := l.storage.AppendLogEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("%w: append log entry: %v", models.ErrStorage, err)
	}
	return entry, nil
}

// Query returns entries matching the filter, newest first, plus the total
// match count independent of limit/offset.
func (l *Log) Query(ctx context.Context, filter models.LogFilter, limit, offset int) ([]*models.QueryLogEntry, int64, error) {
	entries, total, err := l.storage.QueryLog(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: query log: %v", models.ErrStorage, err)
	}
	return entries, total, nil
}

// TopQueries returns the n most frequent query texts, count descending with
// lexicographic tie-break.
func (l *Log) TopQueries(ctx context.Context, n int) ([]models.QueryCount, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: n must be positive, got %d", models.ErrInvalidParameters, n)
	}
	out, err := l.storage.TopQueries(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("%w: top queries: %v", models.ErrStorage, err)
	}
	return out, nil
}

// IntentBreakdown returns entry counts per intent.
func (l *Log) IntentBreakdown(ctx context.Context) ([]models.IntentCount, error) {
	out, err := l.storage.IntentBreakdown(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: intent breakdown: %v", models.ErrStorage, err)
	}
	return out, nil
}

// HourlyBuckets returns one bucket per hour for the trailing window, oldest
// first, zero-filled for hours with no entries. The newest bucket is the
// current (partial) hour.
func (l *Log) HourlyBuckets(ctx context.Context, window time.Duration) ([]models.HourBucket, error) {
	if window < time.Hour {
		return nil, fmt.Errorf("%w: window %v is shorter than one hour", models.ErrInvalidParameters, window)
	}
	n := int(window / time.Hour)
	end := l.now().Truncate(time.Hour)
	start := end.Add(-time.Duration(n-1) * time.Hour)

	timestamps, err := l.storage.LogTimestamps(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("%w: load timestamps: %v", models.ErrStorage, err)
	}

	counts := make(map[time.Time]int64, n)
	for _, ts := range timestamps {
		counts[ts.UTC().Truncate(time.Hour)]++
	}

	buckets := make([]models.HourBucket, 0, n)
	for h := start; !h.After(end); h = h.Add(time.Hour) {
		buckets = append(buckets, models.HourBucket{Hour: h, Count: counts[h]})
	}
	return buckets, nil
}
