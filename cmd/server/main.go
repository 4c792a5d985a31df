package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/smartfarm/advisor/internal/advisory"
	"github.com/smartfarm/advisor/internal/api"
	"github.com/smartfarm/advisor/internal/config"
	"github.com/smartfarm/advisor/internal/llm"
	"github.com/smartfarm/advisor/internal/logx"
	"github.com/smartfarm/advisor/internal/middleware"
	"github.com/smartfarm/advisor/internal/weather"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to load configuration")
	}
	logx.Init(logx.LoggerOpts{Environment: cfg.Env(), Output: os.Stdout})
	if cfg.Env().IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	generator := llm.NewProviderFromConfig(ctx, cfg.LLM)
	pipeline := advisory.New(generator, weather.NewStubSource())

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logging())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowCredentials: true,
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			middleware.RequestIDHeader,
		},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}))

	api.RegisterRoutes(router, api.Options{
		Pipeline:           pipeline,
		UploadMaxBytes:     cfg.Server.UploadMaxBytes,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
	})
	router.MaxMultipartMemory = cfg.Server.UploadMaxBytes

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logx.Info().
			Str("port", cfg.Server.Port).
			Str("provider", generator.Name()).
			Str("environment", cfg.Env().String()).
			Msg("smartfarm advisor listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Str("port", cfg.Server.Port).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	logx.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error().Err(err).Msg("graceful shutdown failed")
	}
}
