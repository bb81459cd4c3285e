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

	"github.com/jcmexdev/storefront-checkout/internal/order-service/adapters/events"
	"github.com/jcmexdev/storefront-checkout/internal/order-service/adapters/memory"
	"github.com/jcmexdev/storefront-checkout/internal/order-service/adapters/postgres"
	"github.com/jcmexdev/storefront-checkout/internal/order-service/app"
	"github.com/jcmexdev/storefront-checkout/internal/order-service/domain"
	"github.com/jcmexdev/storefront-checkout/internal/pkg/config"
	"github.com/jcmexdev/storefront-checkout/internal/pkg/interceptors"
	"github.com/jcmexdev/storefront-checkout/internal/pkg/telemetry"
	orderv1 "github.com/jcmexdev/storefront-checkout/internal/rpc/orderv1"
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

	shutdown, err := telemetry.SetupTracer(ctx, telemetry.Options{
		ServiceName: serviceName(cfg.Telemetry.ServiceName, "order-service"),
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

	var repo domain.Repository
	if cfg.Database.URL != "" {
		pg, err := postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			slog.Error("failed to open order database", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		repo = pg
	} else {
		slog.Warn("database.url not set, orders are kept in memory")
		repo = memory.NewRepository()
	}

	var publisher domain.EventPublisher = events.LogPublisher{}
	if brokers := events.ParseBrokers(cfg.Kafka.Brokers); len(brokers) > 0 {
		kp := events.NewKafkaPublisher(brokers, cfg.Kafka.Topic)
		defer func() {
			if err := kp.Close(); err != nil {
				slog.Error("kafka writer close error", "error", err)
			}
		}()
		publisher = kp
	}

	lis, err := net.Listen("tcp", cfg.OrderService.Listen)
	if err != nil {
		slog.Error("failed to listen", "addr", cfg.OrderService.Listen, "error", err)
		os.Exit(1)
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.UnaryInterceptor(interceptors.TraceServerInterceptor()),
	)
	orderv1.RegisterOrderServer(grpcServer, app.NewOrderServer(repo, publisher))

	go func() {
		<-ctx.Done()
		slog.Info("shutting down order service")
		grpcServer.GracefulStop()
	}()

	slog.Info("order service gRPC running", "addr", cfg.OrderService.Listen)
	if err := grpcServer.Serve(lis); err != nil {
		slog.Error("failed to serve", "error", err)
		os.Exit(1)
	}
}

func serviceName(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}
