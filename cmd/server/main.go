package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diario/internal/cache"
	"github.com/diario/internal/config"
	"github.com/diario/internal/db"
	"github.com/diario/internal/handler"
	"github.com/diario/internal/logger"
	"github.com/diario/internal/router"
	"github.com/diario/internal/service"
	"github.com/diario/internal/tracing"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	log, err := logger.New(cfg.LogLevel, cfg.GinMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.InsecureSecrets() {
		if cfg.GinMode == gin.ReleaseMode {
			log.Fatal("SESSION_SECRET and JWT_SECRET must be set in release mode")
		}
		log.Warn("using development secrets, bearer tokens and session cookies are forgeable")
	}

	shutdownTracing, err := tracing.Setup(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal("failed to set up tracing", zap.Error(err))
	}

	// 初始化数据库
	if err := db.Init(cfg.DatabaseURL); err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	if err := db.EnsureUser(db.DB, cfg.SuperRootUserName, cfg.SuperRootPassword, db.RoleAdmin); err != nil {
		log.Fatal("failed to ensure super root user", zap.Error(err))
	}

	opts := handler.Options{
		JWTSecret:          cfg.JWTSecret,
		TokenTTL:           cfg.TokenTTL,
		VisitDedupWindow:   cfg.VisitDedupWindow,
		VisitRollingWindow: cfg.VisitRollingWindow,
		MessagePurgeGrace:  cfg.MessagePurgeGrace,
	}

	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedis(ctx, cache.Config{Addr: cfg.RedisAddr, TTL: cfg.PopularityCacheTTL})
		if err != nil {
			log.Warn("redis unavailable, popularity cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			defer redisCache.Close()
			opts.Cache = redisCache
		}
	}

	uploadDir := ""
	if cfg.ImgurClientID != "" {
		opts.Images = service.NewImgurStore(cfg.ImgurClientID)
	} else {
		opts.Images = service.NewLocalImageStore(cfg.UploadDir, cfg.UploadURL)
		uploadDir = cfg.UploadDir
	}

	api := handler.NewAPI(db.DB, opts)
	r := router.SetupRouter(api, router.Options{
		SessionSecret: cfg.SessionSecret,
		UploadDir:     uploadDir,
		UploadURL:     cfg.UploadURL,
		ServiceName:   "diario",
	})

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: r}
	go func() {
		log.Info("server listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to run server", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown failed", zap.Error(err))
	}
}
