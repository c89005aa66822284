package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
ai:
  provider: mock
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Host != "localhost" {
		t.Errorf("host default = %q", cfg.Server.Host)
	}
	if cfg.RAG.ChunkSize != 800 || cfg.RAG.ChunkOverlap != 200 || cfg.RAG.TopK != 4 {
		t.Errorf("rag defaults = %+v", cfg.RAG)
	}
	if cfg.AI.GenerationTimeoutMS != 20000 {
		t.Errorf("timeout default = %d", cfg.AI.GenerationTimeoutMS)
	}
	if cfg.Analytics.ExportPageSize != 500 {
		t.Errorf("export page size default = %d", cfg.Analytics.ExportPageSize)
	}
}

func TestLoadExpandsRelativeDatabasePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
ai:
  provider: mock
storage:
  database_path: ./data/assist.db
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := filepath.Join(dir, "data", "assist.db")
	if cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %q, want %q", cfg.Storage.DatabasePath, want)
	}
}

func TestValidateRejectsBadChunking(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.RAG.ChunkSize = 100
	cfg.RAG.ChunkOverlap = 100
	if err := Validate(cfg); err == nil {
		t.Error("expected error for overlap >= chunk size")
	}
	cfg.RAG.ChunkOverlap = -1
	if err := Validate(cfg); err == nil {
		t.Error("expected error for negative overlap")
	}
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.AI.Provider = "llama"
	if err := Validate(cfg); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
