package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/jcmexdev/storefront-checkout/internal/payment-service/app"
	"github.com/jcmexdev/storefront-checkout/internal/pkg/cache"
	"github.com/jcmexdev/storefront-checkout/internal/pkg/config"
	"github.com/jcmexdev/storefront-checkout/internal/pkg/interceptors"
	"github.com/jcmexdev/storefront-checkout/internal/pkg/telemetry"
	walletv1 "github.com/jcmexdev/storefront-checkout/internal/rpc/walletv1"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	telemetry.InitLogger(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	name := cfg.Telemetry.ServiceName
	if name == "" {
		name = "payment-service"
	}
	shutdown, err := telemetry.SetupTracer(ctx, telemetry.Options{
		ServiceName: name,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Environment: cfg.App.Env,
	})
	if err != nil {
		slog.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	var captures cache.Cache
	if cfg.Redis.Addr != "" {
		client := cache.NewRedisClient(cfg.Redis.Addr)
		defer client.Close()
		captures = cache.NewRedisCache(client, "wallet")
	} else {
		slog.Warn("redis.addr not set, captures are kept in memory")
		captures = cache.NewMemoryCache("wallet")
	}

	lis, err := net.Listen("tcp", cfg.WalletService.Listen)
	if err != nil {
		slog.Error("failed to listen", "addr", cfg.WalletService.Listen, "error", err)
		os.Exit(1)
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(interceptors.TraceServerInterceptor()),
	)
	walletv1.RegisterWalletServer(grpcServer, app.NewWalletServer(captures, cfg.Wallet.DeclineAbove, cfg.Wallet.CaptureTTL))

	go func() {
		<-ctx.Done()
		slog.Info("shutting down wallet service")
		grpcServer.GracefulStop()
	}()

	slog.Info("wallet service gRPC running", "addr", cfg.WalletService.Listen, "decline_above", cfg.Wallet.DeclineAbove.String())
	if err := grpcServer.Serve(lis); err != nil {
		slog.Error("failed to serve", "error", err)
		os.Exit(1)
	}
}
