package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nixlim/tooltop/internal/config"
	"github.com/nixlim/tooltop/internal/logging"
	"github.com/nixlim/tooltop/internal/receiver"
	"github.com/nixlim/tooltop/internal/server"
	"github.com/nixlim/tooltop/internal/storage"
)

// runServe runs the stats server until SIGINT or SIGTERM.
//
// Exit codes:
//   - 0: clean shutdown
//   - 1: startup or serve error
func runServe(cfg config.Config, debugPath string) int {
	logger, err := logging.New(cfg.Logging, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tooltop: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	store, isPersistent, err := storage.NewStore(cfg.Storage, logger)
	if err != nil {
		logger.Error("storage error", zap.Error(err))
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing store", zap.Error(err))
		}
	}()

	opts := []server.Option{server.WithLogger(logger)}
	if debugPath != "" {
		debugFile, err := os.OpenFile(config.ExpandTilde(debugPath), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logger.Error("failed to open debug log", zap.String("path", debugPath), zap.Error(err))
			return 1
		}
		defer debugFile.Close()
		opts = append(opts, server.WithReceiverOptions(receiver.WithTrace(receiver.NewFileLogger(debugFile))))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting stats server",
		zap.String("bind", cfg.Server.Bind),
		zap.Int("http_port", cfg.Server.HTTPPort),
		zap.Int("grpc_port", cfg.Server.GRPCPort),
		zap.Bool("persistent", isPersistent),
	)

	if err := server.New(cfg.Server, store, opts...).Run(ctx); err != nil {
		logger.Error("server failed", zap.Error(err))
		return 1
	}
	return 0
}
