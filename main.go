package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"messenger-service/internal/config"
	"messenger-service/internal/db"
	"messenger-service/internal/fanout"
	"messenger-service/internal/handlers"
	"messenger-service/internal/middleware"
	"messenger-service/internal/observability"
	"messenger-service/internal/presence"
	"messenger-service/internal/rabbitmq"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
	"messenger-service/internal/ws"
)

const serviceName = "messenger-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.S().Fatalf("failed to load config: %v", err)
	}

	baseLogger, err := buildLogger(cfg.Debug)
	if err != nil {
		zap.S().Fatalf("failed to build logger: %v", err)
	}
	defer baseLogger.Sync()
	logger := baseLogger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.OTLPEndpoint, serviceName, cfg.Environment)
	if err != nil {
		logger.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warnw("tracing shutdown failed", "error", err)
		}
	}()

	database, err := db.Connect(cfg.DatabaseDSN, logger)
	if err != nil {
		logger.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	audit := telemetry.NewAuditEmitter(publisher, "audit.messenger", serviceName, cfg.Environment, logger)

	messageRepo := repositories.NewMessageRepo(database)
	groupRepo := repositories.NewGroupRepo(database)
	groupMessageRepo := repositories.NewGroupMessageRepo(database)
	reactionRepo := repositories.NewReactionRepo(database)

	hub := ws.NewHub()
	registry := presence.NewRegistry()

	eventRouter := fanout.NewRouter(hub, registry, logger)
	go eventRouter.Run(ctx)

	verifier := middleware.NewJWTVerifier(cfg.JWTSecret)
	gateway := ws.NewGateway(hub, registry, verifier, groupRepo, logger)

	messageHandler := handlers.NewMessageHandler(messageRepo, eventRouter, audit)
	groupHandler := handlers.NewGroupHandler(groupRepo, groupMessageRepo, eventRouter, audit)
	reactionHandler := handlers.NewReactionHandler(reactionRepo, messageRepo, groupMessageRepo, groupRepo, eventRouter, audit)
	receiptHandler := handlers.NewReadReceiptHandler(groupMessageRepo, groupRepo, eventRouter, audit)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.POST("/messages/:user_id", authMiddleware, messageHandler.PostMessage)
	router.GET("/messages/:user_id", authMiddleware, messageHandler.ListMessages)

	router.POST("/groups", authMiddleware, groupHandler.CreateGroup)
	router.GET("/groups", authMiddleware, groupHandler.ListGroups)
	router.GET("/groups/:group_id", authMiddleware, groupHandler.GetGroup)
	router.PUT("/groups/:group_id", authMiddleware, groupHandler.UpdateGroupProfile)
	router.POST("/groups/:group_id/members", authMiddleware, groupHandler.AddMembers)
	router.DELETE("/groups/:group_id/members/:member_id", authMiddleware, groupHandler.RemoveMember)
	router.POST("/groups/:group_id/leave", authMiddleware, groupHandler.LeaveGroup)
	router.POST("/groups/:group_id/transfer-admin", authMiddleware, groupHandler.TransferAdmin)
	router.POST("/groups/:group_id/messages", authMiddleware, groupHandler.PostGroupMessage)
	router.GET("/groups/:group_id/messages", authMiddleware, groupHandler.GetGroupMessages)

	router.POST("/reactions", authMiddleware, reactionHandler.AddReaction)
	router.DELETE("/reactions/:reaction_id", authMiddleware, reactionHandler.RemoveReaction)
	router.POST("/reactions/remove", authMiddleware, reactionHandler.RemoveReactionByKey)
	router.POST("/reactions/bulk", authMiddleware, reactionHandler.BulkReactions)
	router.GET("/reactions/:message_type/:message_id", authMiddleware, reactionHandler.GetMessageReactions)

	router.POST("/read-receipts/:message_id", authMiddleware, receiptHandler.MarkRead)
	router.POST("/read-receipts/bulk", authMiddleware, receiptHandler.MarkManyRead)

	router.GET("/ws", gateway.Handle)

	handlers.RegisterDebugRoutes(router, audit, cfg.Debug)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Infow("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnw("server shutdown failed", "error", err)
	}
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
