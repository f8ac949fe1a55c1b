package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"anamneseai/internal/cache"
	"anamneseai/internal/catalog"
	"anamneseai/internal/config"
	"anamneseai/internal/engine"
	"anamneseai/internal/llm"
	"anamneseai/internal/logger"
	"anamneseai/internal/repository"
	"anamneseai/internal/service"
	"anamneseai/internal/transport/rest"
	"anamneseai/internal/transport/ws"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := logger.Init(cfg.Production); err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	aiConfig := config.DefaultAIConfig()
	logger.L().Infof("AI models: eval=%s guidance=%s summary=%s", aiConfig.Models.Eval, aiConfig.Models.Guidance, aiConfig.Models.Summary)
	if !aiConfig.IsEnabled() {
		logger.L().Warn("OPENAI_API_KEY not set, running on heuristic evaluation only")
	}

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.L().Fatalf("failed to connect to MongoDB: %v", err)
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		logger.L().Fatalf("failed to ping MongoDB: %v", err)
	}
	logger.L().Info("connected to MongoDB")

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logger.L().Fatalf("failed to ping Redis: %v", err)
	}
	logger.L().Info("connected to Redis")

	// Question catalog
	cat := catalog.Load(cfg.QuestionsFile, cfg.MaxRetries)
	if cat.Len() == 0 {
		logger.L().Warn("question catalog is empty, new sessions will complete immediately")
	}

	// WebSocket hub
	wsHub := ws.NewHub()

	// Repositories and caches
	sessionRepo := repository.NewSessionRepo(mongoClient, cfg.MongoDatabase)
	transcriptRepo := repository.NewTranscriptRepo(mongoClient, cfg.MongoDatabase)
	summaryRepo := repository.NewSummaryRepo(mongoClient, cfg.MongoDatabase)
	stateCache := cache.NewStateCache(rdb)

	// Engine and services
	llmClient := llm.New(aiConfig)
	eng := engine.New(cat, llmClient, llmClient, llmClient, cfg.MaxRetries)

	authSvc := service.NewAuthService()
	interviewSvc := service.NewInterviewService(eng, cat, stateCache, sessionRepo, transcriptRepo, summaryRepo)
	interviewSvc.SetBroadcaster(wsHub)

	router := rest.NewRouter(&rest.Container{
		AuthService:      authSvc,
		InterviewService: interviewSvc,
		WSHub:            wsHub,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		logger.L().Infof("server starting on :%s (%d questions loaded)", cfg.HTTPPort, cat.Len())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.L().Fatalf("ListenAndServe: %v", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.L().Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatalf("server forced to shutdown: %v", err)
	}

	logger.L().Info("server exited")
}
