package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"github.com/chris-o-r/SnapShotTesting/internal/assets"
	"github.com/chris-o-r/SnapShotTesting/internal/capture"
	"github.com/chris-o-r/SnapShotTesting/internal/config"
	"github.com/chris-o-r/SnapShotTesting/internal/database"
	"github.com/chris-o-r/SnapShotTesting/internal/diff"
	"github.com/chris-o-r/SnapShotTesting/internal/httpapi"
	"github.com/chris-o-r/SnapShotTesting/internal/logger"
	"github.com/chris-o-r/SnapShotTesting/internal/observability"
	"github.com/chris-o-r/SnapShotTesting/internal/orchestrator"
	"github.com/chris-o-r/SnapShotTesting/internal/store/batchstore"
	"github.com/chris-o-r/SnapShotTesting/internal/store/jobstore"
)

func main() {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "serve":
		serve()
	case "migrate:up", "migrate:down", "migrate:status", "migrate:up-by-one", "migrate:redo":
		migrate(command[len("migrate:"):])
	case "save-doc":
		saveDoc()
	default:
		log.Fatalf("unknown command %q (expected serve, migrate:up, migrate:down, migrate:status, or save-doc)", command)
	}
}

func serve() {
	cfg := config.Load()

	logger.Init("snapshot-testing", cfg.Env, logger.ParseLevelFromEnv())

	shutdownOTel, err := observability.InitOTel(context.Background(), "snapshot-testing-api")
	if err != nil {
		log.Printf("Warning: Failed to initialize OpenTelemetry: %v", err)
	} else {
		defer func() {
			if err := shutdownOTel(context.Background()); err != nil {
				log.Printf("Error shutting down OpenTelemetry: %v", err)
			}
		}()
		log.Println("✓ OpenTelemetry initialized")
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()
	log.Println("✓ Connected to PostgreSQL")

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal("Failed to parse REDIS_URL:", err)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer redisClient.Close()
	log.Println("✓ Connected to Redis")

	httpClient := &http.Client{Timeout: cfg.SeleniumNavigateLimit}
	indexer := capture.NewIndexer(httpClient)
	pool := capture.NewPool(cfg.SeleniumHost, cfg.SeleniumPort, cfg.SeleniumMaxInstances, httpClient)
	diffEngine := diff.NewEngine()
	assetWriter := assets.NewWriter(cfg.AssetsFolder)
	batchStore := batchstore.New(db)
	jobStore := jobstore.New(redisClient)

	orch := orchestrator.New(indexer, pool, diffEngine, assetWriter, batchStore, jobStore)

	removeAssetsRoot := func() error {
		return os.RemoveAll(cfg.AssetsFolder)
	}
	router := httpapi.Setup(db, orch, cfg.AssetsFolder, removeAssetsRoot)

	server := &http.Server{
		Addr:    cfg.BaseURL + ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("🚀 Server starting on %s:%s", cfg.BaseURL, cfg.Port)
		log.Printf("🌍 Environment: %s", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("📤 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	log.Println("✅ Server exited")
}

func migrate(command string) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	fmt.Printf("Running goose %s...\n", command)

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	fmt.Println("✓ Connected to PostgreSQL")

	if err := goose.Run(command, db, "migrations"); err != nil {
		log.Fatalf("Goose %s failed: %v", command, err)
	}
	fmt.Printf("✓ Goose %s completed successfully!\n", command)
}

func saveDoc() {
	const path = "./openapi.json"
	if err := httpapi.WriteOpenAPIDoc(path); err != nil {
		log.Fatalf("Failed to write OpenAPI document: %v", err)
	}
	fmt.Printf("✓ Wrote OpenAPI document to %s\n", path)
}
