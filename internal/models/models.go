// Package models defines core data structures for documents, chunks, and the query log.
package models

import "time"

// Document is an ingested reference document. Documents are immutable after
// creation; re-uploading the same content creates a new Document.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Source    string    `json:"source,omitempty"`
	RawText   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Chunk is a bounded, overlapping slice of a document's text together with its
// embedding vector. Chunks are produced once at ingestion and never mutated.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Text       string    `json:"text"`
	Offset     int       `json:"offset"`
	Seq        int       `json:"seq"`
	Embedding  []float32 `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// ScoredChunk is a retrieval result: a chunk and its cosine similarity to the query.
type ScoredChunk struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}

// QueryLogEntry records one completed chat interaction. Entries are append-only;
// the core never updates or deletes them.
type QueryLogEntry struct {
	ID        string            `json:"id"`
	UserID    *string           `json:"user_id,omitempty"`
	Query     string            `json:"query"`
	Reply     string            `json:"reply"`
	Intent    string            `json:"intent"`
	Channel   string            `json:"channel"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// LogFilter selects query log entries. All set fields are combined with AND.
// Search matches case-insensitively against query or reply text.
type LogFilter struct {
	Start   *time.Time
	End     *time.Time
	Intent  string
	Channel string
	Search  string
}

// QueryCount is one row of the top-queries aggregate.
type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// IntentCount is one row of the intent breakdown aggregate.
type IntentCount struct {
	Intent string `json:"intent"`
	Count  int64  `json:"count"`
}

// HourBucket is one zero-filled hourly bucket of query volume.
type HourBucket struct {
	Hour  time.Time `json:"hour"`
	Count int64     `json:"count"`
}
