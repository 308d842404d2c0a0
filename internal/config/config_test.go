package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: 0.0.0.0
  port: 9090
storage:
  database_path: ./data/documents.db
embedding:
  model: text-embedding-3-large
  dimensions: 3072
rag:
  chunk_size: 500
  chunk_overlap: 100
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true")
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9090 {
		t.Errorf("server config = %+v", cfg.Server)
	}
	if cfg.Embedding.Model != "text-embedding-3-large" || cfg.Embedding.Dimensions != 3072 {
		t.Errorf("embedding config = %+v", cfg.Embedding)
	}
	if cfg.RAG.ChunkSize != 500 || cfg.RAG.ChunkOverlap != 100 {
		t.Errorf("rag config = %+v", cfg.RAG)
	}
	// "./" paths are relative to the config directory.
	if cfg.Storage.DatabasePath != filepath.Join(dir, "data/documents.db") {
		t.Errorf("database path = %s", cfg.Storage.DatabasePath)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)

	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d", cfg.Server.Port)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("default embedding model = %s", cfg.Embedding.Model)
	}
	if cfg.Embedding.APIKeyEnv != "OPENAI_API_KEY" {
		t.Errorf("default api key env = %s", cfg.Embedding.APIKeyEnv)
	}
	if cfg.Embedding.BatchSize != 100 || cfg.Embedding.BatchDelayMS != 100 {
		t.Errorf("default batching = %d/%dms", cfg.Embedding.BatchSize, cfg.Embedding.BatchDelayMS)
	}
	if cfg.RAG.ChunkSize != 1000 || cfg.RAG.ChunkOverlap != 200 {
		t.Errorf("default chunking = %d/%d", cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	}
	if cfg.RAG.TopK != 5 || cfg.RAG.KeywordMaxChunks != 3 {
		t.Errorf("default retrieval = %d/%d", cfg.RAG.TopK, cfg.RAG.KeywordMaxChunks)
	}
	if cfg.Summary.Model != "gpt-3.5-turbo" || cfg.Summary.MaxInputChars != 15000 {
		t.Errorf("default summary = %+v", cfg.Summary)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := Config{}
	cfg.RAG.ChunkSize = 256
	ApplyDefaults(&cfg)
	if cfg.RAG.ChunkSize != 256 {
		t.Errorf("explicit value overwritten: %d", cfg.RAG.ChunkSize)
	}
}
