// Package storage defines persistence for documents, chunks, and the query log.
package storage

import (
	"context"
	"time"

	"github.com/notely/assist/internal/models"
)

// Storage defines document, chunk, and query log persistence operations.
type Storage interface {
	// CreateDocument stores a document together with all of its chunks in a
	// single transaction. Either everything is committed or nothing is.
	CreateDocument(ctx context.Context, doc *models.Document, chunks []*models.Chunk) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	// ListDocuments returns document metadata ordered by created_at descending.
	ListDocuments(ctx context.Context) ([]*models.Document, error)
	// ListChunks returns every chunk with its embedding, ordered by
	// created_at then per-document sequence. The vector index is rebuilt
	// from this at startup, so the order fixes search tie-breaking.
	ListChunks(ctx context.Context) ([]*models.Chunk, error)
	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	// AppendLogEntry stores one query log entry. Entries are never updated
	// or deleted.
	AppendLogEntry(ctx context.Context, entry *models.QueryLogEntry) error
	// QueryLog returns entries matching the filter ordered by created_at
	// descending (ties by insertion order, newest first), plus the total
	// match count ignoring limit and offset.
	QueryLog(ctx context.Context, filter models.LogFilter, limit, offset int) ([]*models.QueryLogEntry, int64, error)
	// TopQueries returns the n most frequent query texts, count descending,
	// ties broken lexicographically.
	TopQueries(ctx context.Context, n int) ([]models.QueryCount, error)
	// IntentBreakdown returns entry counts per intent label.
	IntentBreakdown(ctx context.Context) ([]models.IntentCount, error)
	// LogTimestamps returns the created_at of every entry at or after since,
	// for bucketing by the caller.
	LogTimestamps(ctx context.Context, since time.Time) ([]time.Time, error)

	Close() error
}
