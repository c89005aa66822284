package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/notely/assist/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and
// initializes the schema. Parent directories are created if needed.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		source TEXT,
		raw_text TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);

	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		content TEXT NOT NULL,
		start_offset INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		embedding BLOB NOT NULL,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (document_id) REFERENCES documents(id)
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);

	CREATE TABLE IF NOT EXISTS query_log (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		query TEXT NOT NULL,
		reply TEXT NOT NULL,
		intent TEXT NOT NULL,
		channel TEXT NOT NULL,
		metadata TEXT,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_query_log_created_at ON query_log(created_at);
	CREATE INDEX IF NOT EXISTS idx_query_log_intent ON query_log(intent);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateDocument inserts a document and its chunks in one transaction.
func (s *SQLiteStorage) CreateDocument(ctx context.Context, doc *models.Document, chunks []*models.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, title, source, raw_text, created_at) VALUES (?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Source, doc.RawText, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, document_id, content, start_offset, seq, embedding, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()
	for _, ch := range chunks {
		if _, err := stmt.ExecContext(ctx, ch.ID, ch.DocumentID, ch.Text, ch.Offset, ch.Seq, encodeVector(ch.Embedding), ch.CreatedAt); err != nil {
			return fmt.Errorf("insert chunk %s: %w", ch.ID, err)
		}
	}
	return tx.Commit()
}

// GetDocument returns a document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	var source sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, source, raw_text, created_at FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Title, &source, &doc.RawText, &doc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	doc.Source = source.String
	return &doc, nil
}

// ListDocuments returns document metadata ordered by created_at descending.
// RawText is not populated.
func (s *SQLiteStorage) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, source, created_at FROM documents ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var doc models.Document
		var source sql.NullString
		if err := rows.Scan(&doc.ID, &doc.Title, &source, &doc.CreatedAt); err != nil {
			return nil, err
		}
		doc.Source = source.String
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// ListChunks returns all chunks in creation order.
func (s *SQLiteStorage) ListChunks(ctx context.Context) ([]*models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, content, start_offset, seq, embedding, created_at FROM chunks ORDER BY created_at ASC, seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*models.Chunk
	for rows.Next() {
		var ch models.Chunk
		var blob []byte
		if err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.Text, &ch.Offset, &ch.Seq, &blob, &ch.CreatedAt); err != nil {
			return nil, err
		}
		ch.Embedding = decodeVector(blob)
		chunks = append(chunks, &ch)
	}
	return chunks, rows.Err()
}

// CountDocuments returns the number of stored documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	return n, err
}

// CountChunks returns the number of stored chunks.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}

// AppendLogEntry inserts one query log entry.
func (s *SQLiteStorage) AppendLogEntry(ctx context.Context, entry *models.QueryLogEntry) error {
	var metadata any
	if entry.Metadata != nil {
		data, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		metadata = string(data)
	}
	var userID any
	if entry.UserID != nil {
		userID = *entry.UserID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO query_log (id, user_id, query, reply, intent, channel, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, userID, entry.Query, entry.Reply, entry.Intent, entry.Channel, metadata, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

// logFilterWhere builds the WHERE clause and args for a log filter. All set
// fields are conjunctive.
func logFilterWhere(filter models.LogFilter) (string, []any) {
	var conds []string
	var args []any
	if filter.Start != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, *filter.Start)
	}
	if filter.End != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, *filter.End)
	}
	if filter.Intent != "" {
		conds = append(conds, "intent = ?")
		args = append(args, filter.Intent)
	}
	if filter.Channel != "" {
		conds = append(conds, "channel = ?")
		args = append(args, filter.Channel)
	}
	if filter.Search != "" {
		conds = append(conds, "(LOWER(query) LIKE ? OR LOWER(reply) LIKE ?)")
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		args = append(args, pattern, pattern)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// QueryLog returns matching entries plus the total match count.
func (s *SQLiteStorage) QueryLog(ctx context.Context, filter models.LogFilter, limit, offset int) ([]*models.QueryLogEntry, int64, error) {
	where, args := logFilterWhere(filter)

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM query_log`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count log entries: %w", err)
	}

	q := `SELECT id, user_id, query, reply, intent, channel, metadata, created_at FROM query_log` +
		where + ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	} else if offset > 0 {
		q += fmt.Sprintf(" LIMIT -1 OFFSET %d", offset)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query log entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.QueryLogEntry
	for rows.Next() {
		entry, err := scanLogEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}
	return entries, total, rows.Err()
}

func scanLogEntry(rows *sql.Rows) (*models.QueryLogEntry, error) {
	var entry models.QueryLogEntry
	var userID, metadata sql.NullString
	if err := rows.Scan(&entry.ID, &userID, &entry.Query, &entry.Reply, &entry.Intent, &entry.Channel, &metadata, &entry.CreatedAt); err != nil {
		return nil, err
	}
	if userID.Valid {
		entry.UserID = &userID.String
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &entry.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata for %s: %w", entry.ID, err)
		}
	}
	return &entry, nil
}

// TopQueries returns the n most frequent query texts.
func (s *SQLiteStorage) TopQueries(ctx context.Context, n int) ([]models.QueryCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT query, COUNT(*) AS c FROM query_log GROUP BY query ORDER BY c DESC, query ASC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.QueryCount
	for rows.Next() {
		var qc models.QueryCount
		if err := rows.Scan(&qc.Query, &qc.Count); err != nil {
			return nil, err
		}
		out = append(out, qc)
	}
	return out, rows.Err()
}

// IntentBreakdown returns entry counts per intent, count descending.
func (s *SQLiteStorage) IntentBreakdown(ctx context.Context) ([]models.IntentCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT intent, COUNT(*) AS c FROM query_log GROUP BY intent ORDER BY c DESC, intent ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.IntentCount
	for rows.Next() {
		var ic models.IntentCount
		if err := rows.Scan(&ic.Intent, &ic.Count); err != nil {
			return nil, err
		}
		out = append(out, ic)
	}
	return out, rows.Err()
}

// LogTimestamps returns creation times of entries at or after since.
func (s *SQLiteStorage) LogTimestamps(ctx context.Context, since time.Time) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT created_at FROM query_log WHERE created_at >= ?`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// encodeVector packs a float32 vector as little-endian bytes for BLOB storage.
func encodeVector(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

// decodeVector unpacks a BLOB written by encodeVector.
func decodeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
