package extract

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestSupported(t *testing.T) {
	e := NewExtractor()
	for _, ext := range []string{".txt", ".md", ".pdf", ".DOCX", ".odt", ".rtf", ".xlsx"} {
		if !e.Supported(ext) {
			t.Errorf("Supported(%q) = false", ext)
		}
	}
	for _, ext := range []string{".pptx", ".exe", ".png", ""} {
		if e.Supported(ext) {
			t.Errorf("Supported(%q) = true", ext)
		}
	}
}

func TestExtractPlain(t *testing.T) {
	e := NewExtractor()
	got, err := e.ExtractBytes([]byte("hello notes"), ".txt")
	if err != nil || got != "hello notes" {
		t.Errorf("got %q, %v", got, err)
	}

	// Invalid UTF-8 is replaced, not rejected.
	got, err = e.ExtractBytes([]byte{'o', 'k', 0xff, 0xfe}, ".md")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(got, "ok") || !strings.Contains(got, "�") {
		t.Errorf("got %q", got)
	}

	// Unknown extensions fall back to plain text.
	got, err = e.ExtractBytes([]byte("config = true"), ".conf")
	if err != nil || got != "config = true" {
		t.Errorf("got %q, %v", got, err)
	}
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractDOCX(t *testing.T) {
	e := NewExtractor()
	doc := buildDocx(t, `<w:document><w:body>`+
		`<w:p w:rsidR="00AB"><w:r><w:t>Meeting notes</w:t></w:r></w:p>`+
		`<w:p><w:r><w:t xml:space="preserve">from Tuesday</w:t></w:r></w:p>`+
		`</w:body></w:document>`)
	got, err := e.ExtractBytes(doc, ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Meeting notes from Tuesday" {
		t.Errorf("got %q", got)
	}
}

func TestExtractDOCXMissingDocument(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_ = zw.Close()
	if _, err := NewExtractor().ExtractBytes(buf.Bytes(), ".docx"); err == nil {
		t.Error("expected error for zip without word/document.xml")
	}
}

func TestExtractDOCXNotAZip(t *testing.T) {
	if _, err := NewExtractor().ExtractBytes([]byte("plain bytes"), ".docx"); err == nil {
		t.Error("expected error for non-zip content")
	}
}

func TestExtractExcel(t *testing.T) {
	f := excelize.NewFile()
	if err := f.SetSheetRow("Sheet1", "A1", &[]any{"plan", "price"}); err != nil {
		t.Fatal(err)
	}
	if err := f.SetSheetRow("Sheet1", "A2", &[]any{"Pro", 9}); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}

	got, err := NewExtractor().ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if !strings.Contains(got, "plan\tprice") || !strings.Contains(got, "Pro\t9") {
		t.Errorf("got %q", got)
	}
}

func TestExtractPDFInvalid(t *testing.T) {
	if _, err := NewExtractor().ExtractBytes([]byte("not a pdf"), ".pdf"); err == nil {
		t.Error("expected error for invalid PDF")
	}
}
