package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"docquiz/internal/cache"
	"docquiz/internal/config"
	"docquiz/internal/database"
	"docquiz/internal/logger"
	"docquiz/internal/repository"
	"docquiz/internal/service"
	"docquiz/internal/transport/rest"
	"docquiz/internal/transport/ws"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// App wires the connection manager, repositories, services and router
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	DB        *database.Manager
	Redis     *redis.Client // nil when REDIS_ADDR is unset
	Documents repository.DocumentRepo
	Questions repository.QuestionRepo
	Hub       *ws.Hub

	DocumentService *service.DocumentService
	QuestionService *service.QuestionService

	handler http.Handler
}

// New builds the application without touching the network
func New(cfg *config.Config, log *zap.Logger, dialer database.Dialer) *App {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger.Module(log, "app")}

	a.DB = database.NewManager(dialer, database.Options{
		URI:                    cfg.Mongo.URI,
		ServerSelectionTimeout: cfg.Mongo.ServerSelectionTimeout,
		SocketTimeout:          cfg.Mongo.SocketTimeout,
		MaxPoolSize:            cfg.Mongo.MaxPoolSize,
		RetireGrace:            cfg.Mongo.RetireGrace,
	}, cfg.Mongo.Database, log)

	var questionCache cache.QuestionCache
	if cfg.Redis.Addr != "" {
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		questionCache = cache.NewRedisQuestionCache(a.Redis, cfg.Redis.TTL)
	} else {
		questionCache = cache.NewMemoryQuestionCache(cfg.Redis.TTL)
	}

	a.Documents = repository.NewDocumentRepo(a.DB)
	a.Questions = repository.NewQuestionRepo(a.DB)

	var llm *service.LLMClient
	if cfg.AI != nil && cfg.AI.IsEnabled() {
		llm = service.NewLLMClient(cfg.AI)
	}
	questionModel, ragModel := "", ""
	if cfg.AI != nil {
		questionModel, ragModel = cfg.AI.Models.Questions, cfg.AI.Models.RAG
	}

	a.Hub = ws.NewHub(log)

	authSvc := service.NewAuthService(cfg.Auth.JWTSecret)
	documentSvc := service.NewDocumentService(a.Documents, a.Questions, questionCache, log)
	questionSvc := service.NewQuestionService(a.Questions, a.Documents, questionCache,
		service.NewQuestionGenerator(llm, questionModel, log), log)
	questionSvc.SetBroadcaster(a.Hub)
	ragSvc := service.NewRAGService(documentSvc, llm, ragModel, log)
	a.DocumentService, a.QuestionService = documentSvc, questionSvc

	a.handler = rest.NewRouter(&rest.Container{
		DB:              a.DB,
		AuthService:     authSvc,
		DocumentService: documentSvc,
		QuestionService: questionSvc,
		RAGService:      ragSvc,
		WSHub:           a.Hub,
		Author:          cfg.App.Author,
		AllowedOrigins:  cfg.App.AllowedOrigins(),
		Production:      cfg.App.IsProduction(),
		Logger:          log,
	})

	return a
}

// Handler exposes the router, e.g. for a serverless adapter
func (a *App) Handler() http.Handler {
	return a.handler
}

// Connect establishes the initial database connection
func (a *App) Connect(ctx context.Context) error {
	if _, _, err := a.DB.Acquire(ctx); err != nil {
		return fmt.Errorf("initial database connection: %w", err)
	}

	if a.Redis != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := a.Redis.Ping(pingCtx).Err(); err != nil {
			a.logger.Warn("Redis unreachable, question cache reads will miss", zap.Error(err))
		} else {
			a.logger.Info("Connected to Redis")
		}
	}
	return nil
}

// EnsureIndexes creates the MongoDB indexes both collections rely on
func (a *App) EnsureIndexes(ctx context.Context) error {
	if err := a.Documents.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("documents indexes: %w", err)
	}
	if err := a.Questions.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("questions indexes: %w", err)
	}
	return nil
}

// Run connects and then serves until ctx is cancelled. Environments that do
// not listen return right after connecting.
func (a *App) Run(ctx context.Context) error {
	if err := a.Connect(ctx); err != nil {
		return err
	}

	if !a.cfg.App.Listens() {
		a.logger.Info("Connected; not listening in this environment", zap.String("env", string(a.cfg.App.Env)))
		return nil
	}

	ln, err := net.Listen("tcp", ":"+a.cfg.App.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Server starting", zap.String("addr", ln.Addr().String()), zap.String("env", string(a.cfg.App.Env)))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			a.Close(context.Background())
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := a.Close(shutdownCtx); err != nil {
		a.logger.Warn("close", zap.Error(err))
	}

	a.logger.Info("Server exited")
	return nil
}

// Close stops the hub and releases the database and Redis connections
func (a *App) Close(ctx context.Context) error {
	a.Hub.Stop()
	err := a.DB.Close(ctx)
	if a.Redis != nil {
		if rerr := a.Redis.Close(); rerr != nil && err == nil {
			err = rerr
		}
	}
	return err
}
