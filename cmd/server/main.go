package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	messagingapp "github.com/chatrelay/backend/internal/application/messaging"
	"github.com/chatrelay/backend/internal/infrastructure/autoreply"
	"github.com/chatrelay/backend/internal/infrastructure/config"
	"github.com/chatrelay/backend/internal/infrastructure/dedupe"
	"github.com/chatrelay/backend/internal/infrastructure/event"
	"github.com/chatrelay/backend/internal/infrastructure/logger"
	"github.com/chatrelay/backend/internal/infrastructure/persistence"
	"github.com/chatrelay/backend/internal/infrastructure/provider"
	"github.com/chatrelay/backend/internal/infrastructure/realtime"
	"github.com/chatrelay/backend/internal/interfaces/http/handler"
	"github.com/chatrelay/backend/internal/interfaces/http/middleware"
	"github.com/chatrelay/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting ChatRelay Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database connection with zap-backed GORM logging
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := db.AutoMigrate(); err != nil {
		log.Fatal("Failed to migrate database schema", zap.Error(err))
	}

	// Repositories
	channelRepo := persistence.NewGormChannelRepository(db.DB)
	contactRepo := persistence.NewGormContactRepository(db.DB)
	sessionRepo := persistence.NewGormSessionRepository(db.DB)
	messageRepo := persistence.NewGormMessageRepository(db.DB)

	// Event bus with the audit handler subscribed to everything
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewAuditHandler(log))
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Realtime hub and broadcaster
	hub := realtime.NewHub(log)
	defer func() {
		if err := hub.Close(); err != nil {
			log.Error("Error closing realtime hub", zap.Error(err))
		}
	}()
	broadcaster, err := realtime.NewBroadcaster(cfg.Realtime.Backend, cfg.Redis, hub, log)
	if err != nil {
		log.Fatal("Failed to initialize broadcaster", zap.Error(err))
	}
	log.Info("Realtime broadcaster ready", zap.String("backend", cfg.Realtime.Backend))

	// Webhook idempotency store
	dedupeStore, err := dedupe.NewStoreFactory(cfg.Redis, dedupe.WithLogger(log)).CreateStore(cfg.Dedupe.Backend)
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	defer func() {
		if err := dedupeStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Telephony provider and auto-reply generator
	messagingProvider, err := provider.NewProvider(cfg.Provider, log)
	if err != nil {
		log.Fatal("Failed to initialize messaging provider", zap.Error(err))
	}
	replyGenerator, err := autoreply.NewGenerator(cfg.AutoReply, log)
	if err != nil {
		log.Fatal("Failed to initialize reply generator", zap.Error(err))
	}
	log.Info("Provider stack ready",
		zap.String("provider", cfg.Provider.Backend),
		zap.String("autoreply", cfg.AutoReply.Backend),
		zap.Bool("autoreply_enabled", cfg.AutoReply.Enabled),
	)

	// Application services
	resolver := messagingapp.NewSessionResolver(sessionRepo, cfg.Session.IdleWindow, log)
	channelService := messagingapp.NewChannelService(channelRepo)
	contactService := messagingapp.NewContactService(contactRepo)
	sessionService := messagingapp.NewSessionService(sessionRepo, channelRepo, messageRepo)
	autoReplyCfg := messagingapp.AutoReplyConfig{
		Enabled: cfg.AutoReply.Enabled,
		Delay:   cfg.AutoReply.Delay,
		Timeout: cfg.AutoReply.Timeout,
	}
	messageService := messagingapp.NewMessageService(
		messageRepo, sessionRepo, channelRepo, resolver,
		messagingProvider, broadcaster, replyGenerator, eventBus, autoReplyCfg, log,
	)
	messageRouter := messagingapp.NewMessageRouter(
		channelRepo, sessionRepo, messageRepo, resolver,
		dedupeStore, broadcaster, messagingProvider, replyGenerator, eventBus,
		messagingapp.RouterConfig{
			AutoReply: autoReplyCfg,
			DedupeTTL: cfg.Dedupe.TTL,
		},
		log,
	)

	// HTTP surface
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowOrigins: cfg.HTTP.CORSAllowOrigins,
		AllowMethods: cfg.HTTP.CORSAllowMethods,
		AllowHeaders: cfg.HTTP.CORSAllowHeaders,
		MaxAge:       12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	router.NewRouter(engine).Register(
		handler.NewChannelHandler(channelService),
		handler.NewContactHandler(contactService),
		handler.NewSessionHandler(sessionService, messageService),
		handler.NewMessageHandler(messageService),
		handler.NewWebhookHandler(messageRouter, cfg.Provider, log),
		handler.NewStreamHandler(hub, log),
		handler.NewSystemHandler(db, cfg.App.Name),
	).Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
