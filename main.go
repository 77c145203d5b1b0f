package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/giovaniif/stock-records/cmd/api"
	"github.com/giovaniif/stock-records/infra/config"
	"github.com/giovaniif/stock-records/infra/logger"
	"github.com/giovaniif/stock-records/infra/loki"
	"github.com/giovaniif/stock-records/infra/tracing"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	var lokiSink zapcore.WriteSyncer
	if w := loki.NewWriter(cfg.Observation.LokiURL, cfg.Server.ServiceName, nil); w != nil {
		defer w.Close()
		lokiSink = w
	}
	baseLogger := logger.Must(logger.New(cfg.Server.ServiceName, lokiSink))
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Server.ServiceName, cfg.Observation.OTLPEndpoint)
	if err != nil {
		baseLogger.Warn("tracing disabled", zap.Error(err))
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	if err := api.StartServer(ctx, cfg, baseLogger); err != nil {
		baseLogger.Error("server stopped", zap.Error(err))
		stop()
		_ = baseLogger.Sync()
		os.Exit(1)
	}
}
