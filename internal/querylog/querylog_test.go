package querylog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/notely/assist/internal/models"
	"github.com/notely/assist/internal/storage"
)

func newTestLog(t *testing.T, opts ...Option) *Log {
	t.Helper()
	st, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "assist.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return NewLog(st, opts...)
}

func TestAppendAssignsIdentityAndTimestamp(t *testing.T) {
	ctx := context.Background()
	l := newTestLog(t)
	entry, err := l.Append(ctx, nil, "how much?", "nine dollars", "billing", "web", nil)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if entry.ID == "" {
		t.Error("ID not assigned")
	}
	if entry.CreatedAt.IsZero() {
		t.Error("CreatedAt not assigned")
	}

	entries, total, err := l.Query(ctx, models.LogFilter{Intent: "billing"}, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(entries) != 1 || entries[0].ID != entry.ID {
		t.Errorf("total=%d len=%d", total, len(entries))
	}
}

func TestAppendNeverRejectsContent(t *testing.T) {
	ctx := context.Background()
	l := newTestLog(t)
	// Free text includes empties, quotes and newlines.
	if _, err := l.Append(ctx, nil, "", "", "unknown", "web", nil); err != nil {
		t.Errorf("empty content: %v", err)
	}
	if _, err := l.Append(ctx, nil, "line\nbreak \"quoted\"", "r", "unknown", "web", nil); err != nil {
		t.Errorf("awkward content: %v", err)
	}
}

func TestTopQueriesInvalidN(t *testing.T) {
	l := newTestLog(t)
	if _, err := l.TopQueries(context.Background(), 0); !errors.Is(err, models.ErrInvalidParameters) {
		t.Errorf("err = %v", err)
	}
}

func TestHourlyBucketsZeroFilled(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 28, 15, 30, 0, 0, time.UTC)
	l := newTestLog(t, withClock(func() time.Time { return now }))

	// Two entries this hour, one entry two hours ago, nothing in between.
	for _, at := range []time.Time{
		now.Add(-5 * time.Minute),
		now.Add(-10 * time.Minute),
		now.Add(-2 * time.Hour),
	} {
		at := at
		clock := withClock(func() time.Time { return at })
		clock(l)
		if _, err := l.Append(ctx, nil, "q", "r", "unknown", "web", nil); err != nil {
			t.Fatal(err)
		}
	}
	withClock(func() time.Time { return now })(l)

	buckets, err := l.HourlyBuckets(ctx, 4*time.Hour)
	if err != nil {
		t.Fatalf("HourlyBuckets: %v", err)
	}
	if len(buckets) != 4 {
		t.Fatalf("got %d buckets, want 4", len(buckets))
	}
	for i := 1; i < len(buckets); i++ {
		if got := buckets[i].Hour.Sub(buckets[i-1].Hour); got != time.Hour {
			t.Errorf("bucket spacing = %v", got)
		}
	}
	last := buckets[len(buckets)-1]
	if !last.Hour.Equal(now.Truncate(time.Hour)) {
		t.Errorf("last bucket = %v, want current hour", last.Hour)
	}
	if last.Count != 2 {
		t.Errorf("current-hour count = %d, want 2", last.Count)
	}
	if buckets[1].Count != 1 {
		t.Errorf("two-hours-ago count = %d, want 1", buckets[1].Count)
	}
	if buckets[0].Count != 0 || buckets[2].Count != 0 {
		t.Errorf("empty hours not zero-filled: %+v", buckets)
	}
}

func TestHourlyBucketsRejectsShortWindow(t *testing.T) {
	l := newTestLog(t)
	if _, err := l.HourlyBuckets(context.Background(), 30*time.Minute); !errors.Is(err, models.ErrInvalidParameters) {
		t.Errorf("err = %v", err)
	}
}
