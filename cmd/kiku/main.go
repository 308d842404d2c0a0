// Package main is the kiku server entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/kiku/internal/config"
	"github.com/hyperjump/kiku/internal/embedding"
	"github.com/hyperjump/kiku/internal/extract"
	"github.com/hyperjump/kiku/internal/rag"
	"github.com/hyperjump/kiku/internal/server"
	"github.com/hyperjump/kiku/internal/storage"
	"github.com/hyperjump/kiku/internal/summarize"
	"github.com/hyperjump/kiku/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kiku/config.yaml"

// loadConfig loads config from path. When path is the default, it first
// looks for config.yaml in the current directory (for development); if
// that exists it is used instead.
func loadConfig(path string) (*config.Config, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				return config.Load(fallback)
			}
		}
	}
	return config.Load(path)
}

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("kiku", version)
		return
	}

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to create logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	st, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer func() { _ = st.Close() }()

	apiKey := os.Getenv(cfg.Embedding.APIKeyEnv)
	embedder, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     apiKey,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		BatchSize:  cfg.Embedding.BatchSize,
		BatchDelay: time.Duration(cfg.Embedding.BatchDelayMS) * time.Millisecond,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
		CacheSize:  cfg.Embedding.CacheSize,
	})
	if err != nil {
		logger.Fatal("failed to create embedder", zap.Error(err), zap.String("api_key_env", cfg.Embedding.APIKeyEnv))
	}
	defer func() { _ = embedder.Close() }()

	extractor := extract.NewExtractor(&http.Client{Timeout: 60 * time.Second})

	pipeline := rag.NewPipeline(extractor, embedder, st, rag.Options{
		ChunkSize:        cfg.RAG.ChunkSize,
		ChunkOverlap:     cfg.RAG.ChunkOverlap,
		TopK:             cfg.RAG.TopK,
		KeywordMaxChunks: cfg.RAG.KeywordMaxChunks,
	}, logger)

	summarizer, err := summarize.New(summarize.Config{
		BaseURL:       cfg.Embedding.BaseURL,
		APIKey:        apiKey,
		Model:         cfg.Summary.Model,
		MaxInputChars: cfg.Summary.MaxInputChars,
		MaxTokens:     cfg.Summary.MaxTokens,
	})
	if err != nil {
		logger.Fatal("failed to create summarizer", zap.Error(err))
	}

	srv := server.NewServer(pipeline, extractor, st, summarizer, cfg, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Fatal("server failed", zap.Error(err))
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
