package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/triagedesk/backend/internal/config"
	"github.com/triagedesk/backend/internal/db"
	"github.com/triagedesk/backend/internal/logger"
	"github.com/triagedesk/backend/internal/middleware"
	"github.com/triagedesk/backend/internal/permission"
	"github.com/triagedesk/backend/internal/realtime"
	"github.com/triagedesk/backend/internal/routes"
	"github.com/triagedesk/backend/internal/services"
	"github.com/triagedesk/backend/internal/storage"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", map[string]interface{}{"error": err.Error()})
	}
	logger.Initialize(cfg.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("Server stopped with error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	logger.Info("Server exited gracefully", nil)
}

func run(ctx context.Context, cfg *config.Config) error {
	database, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(database); err != nil {
		return err
	}

	hub := realtime.NewHub()
	publishers := realtime.Fanout{}
	var feed *realtime.PGFeed
	if cfg.Realtime.Driver == "postgres" {
		// other instances see our events through NOTIFY; our own hub is fed
		// by the listener like everyone else's
		feed = realtime.NewPGFeed(database, cfg.Database.DSN, cfg.Realtime.Channel)
		publishers = append(publishers, feed)
	} else {
		publishers = append(publishers, hub)
	}
	if cfg.Kafka.Enabled() {
		sink := realtime.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer sink.Close()
		publishers = append(publishers, sink)
		logger.Info("Exporting events to kafka", map[string]interface{}{"topic": cfg.Kafka.Topic})
	}

	cursors, closeCursors, err := newCursorStore(ctx, cfg, database)
	if err != nil {
		return err
	}
	defer closeCursors()

	var mailer services.Mailer = services.NoopMailer{}
	if cfg.SMTP.Host != "" {
		mailer = services.NewSMTPMailer(cfg.SMTP)
	}

	var avatars storage.ObjectStore
	if cfg.Storage.Endpoint != "" {
		store, err := storage.NewMinioStore(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		avatars = store
	}

	enforcer, err := permission.NewEnforcer()
	if err != nil {
		return err
	}

	llm := services.NewLLMService(cfg.LLM)
	directory := services.NewProfileDirectory(database)
	notifications := services.NewNotificationService(database, mailer, cfg.SMTP.BaseURL)
	intake := services.NewIntakeService(database, directory, cursors, publishers, notifications)
	tickets := services.NewTicketService(database, intake, publishers, notifications)
	chat := services.NewChatService(database, tickets, publishers, llm, services.WithReplyTimeout(cfg.LLM.Timeout))

	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.RequestID())
	r.Use(middleware.CustomLoggerMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.Server.CORSOrigin))
	r.Use(gin.Recovery())

	routes.SetupRoutes(r, routes.Dependencies{
		DB:              database,
		Auth:            cfg.Auth,
		Authorizer:      enforcer,
		Events:          hub,
		Directory:       directory,
		Tickets:         tickets,
		Chat:            chat,
		Recommendations: services.NewRecommendationService(database, tickets, publishers, cfg.Recommendations.SearchURL),
		Logs:            services.NewLogService(database, intake, publishers),
		Notifications:   notifications,
		LLM:             llm,
		Cursors:         cursors,
		Agents:          services.NewAgentClient(cfg.Agent.Timeout),
		Avatars:         avatars,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting triage desk server", map[string]interface{}{
			"addr":     srv.Addr,
			"gin_mode": gin.Mode(),
			"realtime": cfg.Realtime.Driver,
			"tracker":  cfg.Tracker.Driver,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if feed != nil {
		g.Go(func() error {
			return feed.Listen(gctx, hub)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server gracefully...", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		// let in-flight assistant replies and emails finish
		chat.Wait()
		notifications.Wait()
		return err
	})

	return g.Wait()
}

// newCursorStore picks where round robin cursors live
func newCursorStore(ctx context.Context, cfg *config.Config, database *gorm.DB) (services.CursorStore, func(), error) {
	if cfg.Tracker.Driver != "redis" {
		return services.NewGormCursorStore(database), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.WithError(err, "tracker").Warn("Failed to close redis client")
		}
	}
	return services.NewRedisCursorStore(client, cfg.Tracker.KeyPrefix), closeFn, nil
}
