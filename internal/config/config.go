// Package config provides configuration loading and structs for the assist server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	AI        AIConfig        `yaml:"ai"`
	RAG       RAGConfig       `yaml:"rag"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Ingest    IngestConfig    `yaml:"ingest"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the path of the SQLite database.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// AIConfig holds embedding and generation provider settings.
// Provider is "gemini" or "mock"; the mock provider is for development and
// tests only and needs no credentials.
type AIConfig struct {
	Provider            string `yaml:"provider"`
	APIKeyEnv           string `yaml:"api_key_env"`
	GenerationModel     string `yaml:"generation_model"`
	EmbeddingModel      string `yaml:"embedding_model"`
	EmbeddingDimensions int    `yaml:"embedding_dimensions"`
	GenerationTimeoutMS int    `yaml:"generation_timeout_ms"`
	EmbeddingCacheSize  int    `yaml:"embedding_cache_size"`
}

// RAGConfig holds chunking and retrieval settings. Sizes are in characters.
type RAGConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`
}

// AnalyticsConfig holds query log export and streaming settings.
type AnalyticsConfig struct {
	ExportPageSize   int `yaml:"export_page_size"`
	StreamBufferSize int `yaml:"stream_buffer_size"`
}

// IngestConfig holds directory auto-ingestion settings. Files dropped into the
// listed directories are extracted and uploaded as reference documents.
type IngestConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	for i := range cfg.Ingest.Directories {
		cfg.Ingest.Directories[i] = expandPath(cfg.Ingest.Directories[i], configDir)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that defaults cannot repair.
func Validate(cfg *Config) error {
	if cfg.RAG.ChunkOverlap < 0 || cfg.RAG.ChunkSize <= cfg.RAG.ChunkOverlap {
		return fmt.Errorf("rag: chunk_size (%d) must exceed chunk_overlap (%d) and overlap must be >= 0",
			cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	}
	if cfg.AI.Provider != "gemini" && cfg.AI.Provider != "mock" {
		return fmt.Errorf("ai: unknown provider %q", cfg.AI.Provider)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative
// to configDir; other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
