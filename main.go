package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"docquery/api"
	"docquery/config"
	"docquery/database"
	"docquery/embeddings"
	"docquery/index"
	"docquery/llm"
	"docquery/prompts"
	"docquery/session"
	"docquery/telemetry"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	// A missing .env file is fine; environment variables still apply.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to YAML config file")
	addr := flag.String("addr", "", "listen address override")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatalf("embedder setup: %v", err)
	}

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		logger.Fatalf("llm setup: %v", err)
	}

	var tracer telemetry.Tracer = telemetry.Nop{}
	if cfg.Telemetry.Enabled {
		driver, err := database.NewNeo4jDriver(ctx, cfg.Telemetry.Neo4jURI, cfg.Telemetry.Neo4jUser, cfg.Telemetry.Neo4jPass)
		if err != nil {
			logger.Fatalf("neo4j connection: %v", err)
		}
		defer driver.Close(ctx)
		tracer = telemetry.NewNeo4jTracer(driver, cfg.Telemetry.Project, logger)
		logger.Printf("telemetry enabled, project %q", cfg.Telemetry.Project)
	}

	newIndex := func(string) (index.Index, error) {
		return index.NewMemory(embedder), nil
	}
	if cfg.Index.Backend == config.BackendPgvector {
		pool, err := database.NewPostgresPool(ctx, cfg.Index.PostgresDSN)
		if err != nil {
			logger.Fatalf("postgres connection: %v", err)
		}
		defer pool.Close()
		if err := database.EnsureChunkSchema(ctx, pool, cfg.Embeddings.Dimension); err != nil {
			logger.Fatalf("postgres schema: %v", err)
		}
		newIndex = func(sessionID string) (index.Index, error) {
			return index.NewPostgres(pool, embedder, sessionID, cfg.Embeddings.Dimension), nil
		}
		logger.Printf("index backend: pgvector")
	} else {
		logger.Printf("index backend: memory")
	}

	server := api.New(api.Options{
		Config:   cfg,
		Logger:   logger,
		Embedder: embedder,
		LLM:      llmClient,
		Tracer:   tracer,
		Sessions: session.NewStore(logger),
		Prompts:  prompts.NewStore(prompts.Default()),
		NewIndex: newIndex,
	})

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("shutdown: %v", err)
		}
	}()

	logger.Printf("listening on %s (embeddings %s/%s, llm %s/%s)",
		cfg.ListenAddr,
		cfg.Embeddings.Provider, cfg.Embeddings.Model,
		cfg.LLM.Provider, cfg.LLM.Model)

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("serve: %v", err)
	}
	logger.Println("server stopped")
}
