// Package cli renders command output for the assist client commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/notely/assist/internal/models"
	"github.com/notely/assist/pkg/utils"
)

// OutputFormat selects how command results are rendered.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat maps a -output flag value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch s {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// ChatReply is the answer returned by the chat endpoint.
type ChatReply struct {
	Reply  string `json:"reply"`
	Intent string `json:"intent"`
}

// WriteChatReply writes a chat answer to w in the given format.
func WriteChatReply(w io.Writer, reply *ChatReply, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, reply)
	}
	fmt.Fprintf(w, "[%s]\n%s\n", reply.Intent, reply.Reply)
	return nil
}

// WriteDocuments writes document metadata to w in the given format.
func WriteDocuments(w io.Writer, docs []*models.Document, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, docs)
	}
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents.")
		return nil
	}
	fmt.Fprintf(w, "%d document(s):\n", len(docs))
	for _, doc := range docs {
		fmt.Fprintf(w, "  %s  %s  (%s, %s)\n",
			doc.ID, utils.Truncate(doc.Title, 60), doc.Source, doc.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// WriteUploadResult writes the outcome of a document upload.
func WriteUploadResult(w io.Writer, doc *models.Document, chunks int, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]any{"doc": doc, "chunks": chunks})
	}
	fmt.Fprintf(w, "Uploaded %q as %s (%d chunks)\n", doc.Title, doc.ID, chunks)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
