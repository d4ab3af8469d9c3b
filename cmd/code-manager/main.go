package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"codemanager/internal/config"
	"codemanager/internal/controller"
	"codemanager/internal/manager"
	sandboxdocker "codemanager/internal/sandbox/docker"
	"codemanager/pkg/utils/logger"
)

const defaultConfigPath = "configs/code_manager.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	execCfg, err := config.Load(appCfg.Manager.ExecutionConfigPath)
	if err != nil {
		logger.Error(context.Background(), "load execution config failed",
			zap.String("path", appCfg.Manager.ExecutionConfigPath), zap.Error(err))
		return
	}
	store := config.NewStore(execCfg)

	driver, err := sandboxdocker.New(sandboxdocker.Options{
		WorkspaceRoot: appCfg.Manager.WorkspaceRoot,
		StopGrace:     appCfg.Manager.StopGrace,
	})
	if err != nil {
		logger.Error(context.Background(), "init docker driver failed", zap.Error(err))
		return
	}

	codeManager, err := manager.New(store, driver, appCfg.Manager.MaxConcurrent)
	if err != nil {
		logger.Error(context.Background(), "init code manager failed", zap.Error(err))
		return
	}

	httpServer := &http.Server{
		Addr:         appCfg.Server.Addr(),
		Handler:      controller.NewRouter(codeManager),
		ReadTimeout:  appCfg.Server.ReadTimeout,
		WriteTimeout: appCfg.Server.WriteTimeout,
		IdleTimeout:  appCfg.Server.IdleTimeout,
	}
	listener, err := net.Listen("tcp", appCfg.Server.Addr())
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "code manager started",
			zap.String("addr", appCfg.Server.Addr()),
			zap.Int("max_concurrent", appCfg.Manager.MaxConcurrent),
			zap.Strings("languages", execCfg.Tags()))
		errCh <- httpServer.Serve(listener)
	}()

	// SIGHUP reloads the execution config without interrupting runs.
	reloadCh := make(chan os.Signal, 1)
	signal.Notify(reloadCh, syscall.SIGHUP)
	go func() {
		for range reloadCh {
			if err := store.Reload(appCfg.Manager.ExecutionConfigPath); err != nil {
				logger.Error(context.Background(), "reload execution config failed", zap.Error(err))
				continue
			}
			logger.Info(context.Background(), "execution config reloaded",
				zap.Strings("languages", store.Get().Tags()))
		}
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
}
