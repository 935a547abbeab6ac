package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sirupsen/logrus"

	_ "github.com/kdduha/property-inspector/backend/docs"
	"github.com/kdduha/property-inspector/backend/internal/cache"
	"github.com/kdduha/property-inspector/backend/internal/config"
	"github.com/kdduha/property-inspector/backend/internal/handler"
	"github.com/kdduha/property-inspector/backend/internal/imageproc"
	"github.com/kdduha/property-inspector/backend/internal/logger"
	"github.com/kdduha/property-inspector/backend/internal/service"
)

// @title Property Inspector API
// @version 1.0
// @description Construction and property image analysis backed by a multimodal model.
// @BasePath /
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config error")
	}

	l := logger.New(cfg.LogLevel)

	pipeline := imageproc.NewPipeline(cfg.Image, l)
	analyzeService := service.NewAnalyzeService(
		l,
		openai.NewClient(
			option.WithAPIKey(cfg.OpenAI.APIKey),
			option.WithBaseURL(cfg.OpenAI.BaseURL),
			option.WithMaxRetries(0),
		),
		pipeline,
		cfg.OpenAI,
	)

	if cfg.CacheEnable {
		redisCache := cache.NewRedisCache(
			cfg.RedisConfig.Addr,
			cfg.RedisConfig.Password,
			cfg.RedisConfig.DB,
			cfg.RedisConfig.TTL,
		)
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			l.WithError(err).Warn("redis is unreachable, cache lookups will fail open")
		}
		analyzeService.SetCacheClient(redisCache)
		l.WithField("addr", cfg.RedisConfig.Addr).Info("set redis as cache")
	}

	a := handler.NewAnalyzeHandler(analyzeService, l, cfg.Server.MaxBodyBytes)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: handler.NewRouter(cfg.Server, l, a),
	}

	go func() {
		l.WithField("port", cfg.Server.Port).Info("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.WithError(err).Fatal("listen error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.WithError(err).Fatal("server forced to shutdown")
	}
	l.Info("server stopped")
}
