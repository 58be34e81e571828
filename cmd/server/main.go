package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"crmgateway/internal/config"
	"crmgateway/internal/infrastructure/email"
	"crmgateway/internal/infrastructure/logger"
	"crmgateway/internal/infrastructure/mysql"
	"crmgateway/internal/infrastructure/pocketbase"
	"crmgateway/internal/infrastructure/redis"
	"crmgateway/internal/infrastructure/whatsapp"
	"crmgateway/internal/notification"
	"crmgateway/internal/order"
	"crmgateway/internal/product"
	"crmgateway/internal/server"
	"crmgateway/internal/template/cache"
	templaterepo "crmgateway/internal/template/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx := context.Background()

	pb := pocketbase.NewClient(cfg.PocketBase, zapLogger.Named("pocketbase"))

	var db *sql.DB
	if cfg.Storage.Driver == config.StorageDriverMySQL {
		db, err = mysql.NewConnection(cfg.Database)
		if err != nil {
			zapLogger.Fatal("connecting to database", zap.Error(err))
		}
		defer db.Close()

		if err := mysql.RunMigrations(db); err != nil {
			zapLogger.Fatal("running migrations", zap.Error(err))
		}
		zapLogger.Info("database connected")
	}

	var templates cache.Repository
	if db != nil {
		templates = templaterepo.NewMySQLTemplateRepository(db)
	} else {
		templates = templaterepo.NewPocketBaseTemplateRepository(pb)
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		zapLogger.Warn("redis unavailable, template cache disabled", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
		templates = cache.NewCachedRepository(templates, rdb, cfg.Redis.TemplateTTL, zapLogger)
	}

	var emailSender notification.EmailSender
	if cfg.Notification.EmailEnabled {
		sender, err := email.NewSender(cfg.Email, zapLogger.Named("email"))
		if err != nil {
			zapLogger.Fatal("configuring email sender", zap.Error(err))
		}
		emailSender = sender
	}

	dispatcher := notification.NewDispatcher(
		notification.NewPlanner(cfg.Notification.DefaultCarrier),
		notification.NewRenderer(templates, nil, zapLogger),
		whatsapp.NewClient(cfg.WhatsApp, zapLogger.Named("whatsapp")),
		emailSender,
		notification.Options{
			DefaultOrigin: cfg.Notification.PublicOrigin,
			SendTimeout:   cfg.Notification.SendTimeout,
			Language:      cfg.Notification.TemplateLanguage,
		},
		zapLogger.Named("notification"),
	)

	router, err := server.NewRouter(cfg.Proxy, server.Modules{
		Orders:   order.NewModule(cfg, pb, db, dispatcher, zapLogger),
		Products: product.NewModule(cfg, pb, db, zapLogger),
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("building router", zap.Error(err))
	}

	srv := server.New(cfg.Server.Port, router, zapLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server shutdown failed", zap.Error(err))
	}

	dispatcher.Wait()
	zapLogger.Info("server stopped gracefully")
}
