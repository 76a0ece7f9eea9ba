// Package main runs the in-memory development server: the websocket
// session fan-out plus the REST subset of the production backend.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sharat789/steam-bazaar-fev2/config"
	"github.com/sharat789/steam-bazaar-fev2/internal/devserver"
	"github.com/sharat789/steam-bazaar-fev2/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg := config.LoadServer()

	var pub devserver.Publisher
	var sub devserver.Subscriber
	if cfg.Redis.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		cancel()
		if err != nil {
			logger.Warn("redis unavailable, running single-instance", zap.Error(err))
		} else {
			defer rdb.Close()
			pubsub := devserver.NewRedisPubSub(rdb.Client, logger)
			pub, sub = pubsub, pubsub
		}
	}

	server := devserver.New(logger, pub, sub)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server.Router(cfg.Server.CORSAllowedOrigins),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("dev server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
