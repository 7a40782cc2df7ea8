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
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/alertcore/alertcore/pkg/alertrpc"
	"github.com/alertcore/alertcore/pkg/logging"
	"github.com/alertcore/alertcore/server/internal/alerts"
	"github.com/alertcore/alertcore/server/internal/api"
	"github.com/alertcore/alertcore/server/internal/auth"
	"github.com/alertcore/alertcore/server/internal/config"
	"github.com/alertcore/alertcore/server/internal/notify"
	"github.com/alertcore/alertcore/server/internal/receiver"
	"github.com/alertcore/alertcore/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	envPath := flag.String("env", ".env", "optional dotenv file with secrets referenced by *_env keys")
	flag.Parse()

	boot := zerolog.New(os.Stderr).With().Timestamp().Str("service", "alert-server").Logger()

	if err := config.LoadEnv(*envPath); err != nil {
		boot.Fatal().Err(err).Msg("failed to load env file")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		boot.Fatal().Err(err).Str("config", *configPath).Msg("failed to load config")
	}

	logger, logCloser, err := logging.New(cfg.Server.Log, os.Stdout, "alert-server")
	if err != nil {
		boot.Fatal().Err(err).Msg("failed to build logger")
	}
	defer logCloser.Close()

	logger.Info().
		Int("grpc_port", cfg.Server.GRPCPort).
		Int("http_port", cfg.Server.HTTPPort).
		Str("auth_mode", cfg.Server.Auth.Mode).
		Str("notify_mode", cfg.Server.Notify.Mode).
		Dur("cleared_retention", cfg.Server.Retention.Cleared).
		Msg("config loaded")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Alert manager with the configured notification executor.
	opts := alerts.Options{Logger: logger, Retention: cfg.Server.Retention.Cleared}
	var pool *notify.Pool
	switch cfg.Server.Notify.Mode {
	case config.NotifyModeDirect:
		opts.Executor = notify.Direct{}
	default:
		pool = notify.NewPool(cfg.Server.Notify.Workers, cfg.Server.Notify.QueueSize, logger)
		opts.Executor = pool
	}
	mgr := alerts.New(opts)
	registerDescriptors(mgr, cfg, logger)
	go mgr.Run(ctx)

	// Receivers: webhooks and the WebSocket hub.
	if hooks := alerts.NewWebhooks(cfg.Server.Webhooks, logger); hooks.Len() > 0 {
		mgr.AddReceiver(hooks)
		logger.Info().Int("targets", hooks.Len()).Msg("webhook receiver enabled")
	}
	hub := ws.New(mgr.Pending, cfg.Server.WS.Interval, logger)
	mgr.AddReceiver(hub)
	go hub.Run(ctx)

	// Descriptors added to the config file are picked up without a restart.
	go func() {
		err := config.Watch(ctx, *configPath, logger, func(next *config.Config) {
			registerDescriptors(mgr, next, logger)
		})
		if err != nil {
			logger.Warn().Err(err).Msg("config watcher disabled")
		}
	}()

	// gRPC ingestion with optional API key authentication.
	interceptor := auth.APIKeyInterceptor(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		auth.ParseKeys(cfg.Server.Auth.Key()),
		logger,
	)
	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(interceptor))
	alertrpc.RegisterAlertServiceServer(grpcSrv, receiver.New(mgr, logger))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		logger.Fatal().Err(err).Int("port", cfg.Server.GRPCPort).Msg("failed to listen on gRPC port")
	}
	go func() {
		logger.Info().Int("port", cfg.Server.GRPCPort).Msg("gRPC receiver listening")
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error().Err(err).Msg("gRPC server stopped")
		}
	}()

	// Combined HTTP server: REST API, metrics and WebSocket hub on HTTPPort.
	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", api.New(mgr))
	httpMux.Handle("/metrics", api.MetricsHandler(mgr))
	httpMux.Handle("/ws/stream", hub)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           httpMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Int("port", cfg.Server.HTTPPort).Msg("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("alert-server shutting down")

	grpcSrv.GracefulStop()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck

	mgr.Close()
	if pool != nil {
		pool.Stop()
	}
}

// registerDescriptors adds every configured descriptor. Types that are
// already registered keep their existing descriptor.
func registerDescriptors(mgr *alerts.Manager, cfg *config.Config, logger zerolog.Logger) {
	for _, dc := range cfg.Server.Descriptors {
		d, err := dc.Descriptor()
		if err != nil {
			logger.Warn().Err(err).Str("type", dc.Type).Msg("skipping invalid descriptor")
			continue
		}
		if mgr.AddDescriptor(d) {
			logger.Info().Str("type", d.AlertType()).Msg("descriptor registered")
		}
	}
}
