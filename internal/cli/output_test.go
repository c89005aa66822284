package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/notely/assist/internal/models"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "text": OutputText, "json": OutputJSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWriteChatReplyText(t *testing.T) {
	var buf bytes.Buffer
	err := WriteChatReply(&buf, &ChatReply{Reply: "It costs $9.", Intent: "billing"}, OutputText)
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "[billing]") || !strings.Contains(out, "It costs $9.") {
		t.Errorf("output:\n%s", out)
	}
}

func TestWriteChatReplyJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteChatReply(&buf, &ChatReply{Reply: "r", Intent: "support"}, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded ChatReply
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Intent != "support" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteDocuments(t *testing.T) {
	docs := []*models.Document{
		{ID: "d1", Title: "Billing FAQ", Source: "upload", CreatedAt: time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)},
	}
	var buf bytes.Buffer
	if err := WriteDocuments(&buf, docs, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Billing FAQ") || !strings.Contains(buf.String(), "d1") {
		t.Errorf("output:\n%s", buf.String())
	}

	buf.Reset()
	if err := WriteDocuments(&buf, nil, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No documents") {
		t.Errorf("output:\n%s", buf.String())
	}

	buf.Reset()
	if err := WriteDocuments(&buf, docs, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded []*models.Document
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil || len(decoded) != 1 {
		t.Errorf("json output bad: %v\n%s", err, buf.String())
	}
}
