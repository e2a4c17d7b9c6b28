package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/netutil"
	"google.golang.org/grpc"

	"github.com/RowanDark/xorcrack/internal/config"
	"github.com/RowanDark/xorcrack/internal/logging"
	"github.com/RowanDark/xorcrack/internal/observability/metrics"
	"github.com/RowanDark/xorcrack/internal/observability/tracing"
	"github.com/RowanDark/xorcrack/internal/service"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "additional YAML configuration file applied after the defaults")
	addr := flag.String("addr", "", "address for the gRPC server to listen on (overrides server_addr)")
	token := flag.String("token", "", "authentication token required from clients (overrides auth_token)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *addr != "" {
		cfg.ServerAddr = *addr
	}
	if *token != "" {
		cfg.AuthToken = *token
	}
	if cfg.AuthToken == "" {
		fmt.Fprintln(os.Stderr, "--token or XORCRACK_AUTH_TOKEN must be provided")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the standard configuration and then applies path, if
// given, on top of it.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if path == "" {
		return cfg, nil
	}
	if err := config.LoadFile(&cfg, path); err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config.Config) error {
	opts := []logging.Option{}
	if cfg.AuditLog != "" {
		opts = append(opts, logging.WithFile(cfg.AuditLog))
	}
	audit, err := logging.NewAuditLogger("xorcrackd", opts...)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer func() {
		if err := audit.Close(); err != nil {
			log.Printf("failed to close audit log: %v", err)
		}
	}()

	lis, err := net.Listen("tcp", cfg.ServerAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.ServerAddr, err)
	}
	if cfg.MaxConns > 0 {
		lis = netutil.LimitListener(lis, cfg.MaxConns)
	}
	defer func() {
		if err := lis.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Printf("failed to close listener: %v", err)
		}
	}()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if cfg.MetricsAddr != "" {
		metricsLis, err := net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.MetricsAddr, err)
		}
		metricsSrv := startMetricsServer(metricsLis, logger)
		_ = audit.Emit(logging.AuditEvent{
			EventType: logging.EventServerLifecycle,
			Metadata:  map[string]any{"state": "metrics_ready", "addr": metricsLis.Addr().String()},
		})
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server shutdown failed", "error", err)
			}
		}()
	}

	return serve(ctx, lis, cfg, logger, audit)
}

// startMetricsServer serves the Prometheus exposition on lis until Shutdown.
func startMetricsServer(lis net.Listener, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	return srv
}

func serve(ctx context.Context, lis net.Listener, cfg config.Config, logger *slog.Logger, audit *logging.AuditLogger) error {
	if cfg.AuthToken == "" {
		return errors.New("auth token must be provided")
	}

	toolkit, err := service.NewServer(service.Options{
		Strict:   cfg.Strict,
		Alphabet: cfg.Alphabet,
		Logger:   logger,
		Audit:    audit.WithComponent("toolkit"),
	})
	if err != nil {
		return err
	}

	tracer, err := tracing.Setup(ctx, tracing.Config{
		ServiceName: "xorcrackd",
		SampleRatio: cfg.TraceSampleRatio,
		FilePath:    cfg.TraceFile,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			logger.Warn("trace shutdown failed", "error", err)
		}
	}()

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		tracer.UnaryServerInterceptor(),
		metrics.UnaryServerInterceptor(),
		service.TokenInterceptor(cfg.AuthToken, logger, audit.WithComponent("auth")),
	))
	service.RegisterToolkitServer(srv, toolkit)

	lifecycle := func(state string) {
		_ = audit.Emit(logging.AuditEvent{
			EventType: logging.EventServerLifecycle,
			Metadata: map[string]any{
				"state":     state,
				"addr":      lis.Addr().String(),
				"version":   version,
				"strict":    cfg.Strict,
				"alphabet":  cfg.Alphabet,
				"max_conns": cfg.MaxConns,
			},
		})
	}
	lifecycle("started")
	logger.Info("xorcrackd listening", "addr", lis.Addr().String(), "version", version)

	// Stop the gRPC server once the provided context is cancelled.
	go func() {
		<-ctx.Done()

		done := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			srv.Stop()
		}
	}()

	err = srv.Serve(lis)
	lifecycle("stopped")
	if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
