// Package export streams filtered query log history as CSV without loading
// the full result set into memory.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/notely/assist/internal/models"
	"github.com/notely/assist/internal/querylog"
)

var header = []string{"id", "created_at", "user_id", "channel", "intent", "query", "reply", "metadata"}

// Streamer pages through the query log and writes CSV rows as it goes.
type Streamer struct {
	log      *querylog.Log
	logger   *zap.Logger
	pageSize int
	now      func() time.Time
}

// Option configures a Streamer.
type Option func(*Streamer)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Streamer) {
		s.logger = logger
	}
}

// NewStreamer creates a streamer that reads pageSize entries per storage
// round trip.
func NewStreamer(log *querylog.Log, pageSize int, opts ...Option) *Streamer {
	if pageSize <= 0 {
		pageSize = 500
	}
	s := &Streamer{
		log:      log,
		logger:   zap.NewNop(),
		pageSize: pageSize,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stream writes all entries matching filter to w as CSV, header first. The
// filter's end time is pinned to the stream's start so entries appended while
// the export runs cannot shift pages. A filter matching nothing still yields
// the header row. Returns the number of data rows written; a mid-stream
// failure wraps models.ErrExport.
func (s *Streamer) Stream(ctx context.Context, w io.Writer, filter models.LogFilter) (int, error) {
	if filter.End == nil {
		end := s.now()
		filter.End = &end
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return 0, fmt.Errorf("%w: write header: %v", models.ErrExport, err)
	}

	rows := 0
	for offset := 0; ; offset += s.pageSize {
		entries, _, err := s.log.Query(ctx, filter, s.pageSize, offset)
		if err != nil {
			return rows, fmt.Errorf("%w: read page at offset %d: %v", models.ErrExport, offset, err)
		}
		for _, entry := range entries {
			if err := cw.Write(record(entry)); err != nil {
				return rows, fmt.Errorf("%w: write row %d: %v", models.ErrExport, rows, err)
			}
			rows++
		}
		if len(entries) < s.pageSize {
			break
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return rows, fmt.Errorf("%w: flush: %v", models.ErrExport, err)
	}
	s.logger.Info("export complete", zap.Int("rows", rows))
	return rows, nil
}

func record(entry *models.QueryLogEntry) []string {
	userID := ""
	if entry.UserID != nil {
		userID = *entry.UserID
	}
	return []string{
		entry.ID,
		entry.CreatedAt.UTC().Format(time.RFC3339),
		userID,
		entry.Channel,
		entry.Intent,
		entry.Query,
		entry.Reply,
		flattenMetadata(entry.Metadata),
	}
}

// flattenMetadata renders the metadata map as "k=v" pairs separated by
// semicolons, keys sorted for a stable export.
func flattenMetadata(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + m[k]
	}
	return strings.Join(pairs, ";")
}
