package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/delivery"
	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/ports"
	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/core/pricing"
	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/infra/adapters/cartstore"
	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/infra/adapters/service"
	"github.com/jcmexdev/storefront-checkout/internal/checkout-api/infra/httpx"
	"github.com/jcmexdev/storefront-checkout/internal/coordinator"
	"github.com/jcmexdev/storefront-checkout/internal/coordinator/checkoutlog"
	"github.com/jcmexdev/storefront-checkout/internal/coordinator/checkoutlog/sqlite"
	"github.com/jcmexdev/storefront-checkout/internal/pkg/cache"
	"github.com/jcmexdev/storefront-checkout/internal/pkg/config"
	"github.com/jcmexdev/storefront-checkout/internal/pkg/interceptors"
	"github.com/jcmexdev/storefront-checkout/internal/pkg/metrics"
	"github.com/jcmexdev/storefront-checkout/internal/pkg/telemetry"
	orderv1 "github.com/jcmexdev/storefront-checkout/internal/rpc/orderv1"
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
		name = "checkout-api"
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

	orderConn := createGRPCConn(cfg.OrderService.Addr)
	defer orderConn.Close()

	walletConn := createGRPCConn(cfg.WalletService.Addr)
	defer walletConn.Close()

	orders := service.NewGRPCOrderBackend(orderv1.NewOrderClient(orderConn))
	payments := service.NewGRPCWallet(walletv1.NewWalletClient(walletConn))

	var carts ports.CartStore
	if cfg.Redis.Addr != "" {
		client := cache.NewRedisClient(cfg.Redis.Addr)
		defer client.Close()
		carts = cartstore.NewRedisStore(client, cfg.Redis.CartTTL)
	} else {
		slog.Warn("redis.addr not set, carts are kept in memory")
		carts = cartstore.NewMemoryStore()
	}

	var checkoutLog checkoutlog.Repository
	if cfg.CheckoutLog.Path != "" {
		repo, err := sqlite.Open(cfg.CheckoutLog.Path)
		if err != nil {
			slog.Error("failed to open checkout log", "path", cfg.CheckoutLog.Path, "error", err)
			os.Exit(1)
		}
		defer repo.Close()
		checkoutLog = repo
	}

	registry := metrics.NewRegistry()
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)
	validator := delivery.NewValidator(cfg.Delivery.ServiceAreaCities)

	orchestrator := coordinator.NewOrchestrator(coordinator.Options{
		Carts:    carts,
		Orders:   orders,
		Payments: payments,
		Pricing: pricing.NewEngine(
			pricing.FlatShipping{Threshold: cfg.Pricing.FreeShippingThreshold, Fee: cfg.Pricing.FlatShippingFee},
			pricing.FlatTax{Rate: cfg.Pricing.TaxRate},
		),
		Validator: validator,
		Log:       checkoutLog,
		Metrics:   checkoutMetrics,
		Timeouts: coordinator.Timeouts{
			CreateOrder: cfg.Checkout.CreateOrderTimeout,
			Capture:     cfg.Checkout.CaptureTimeout,
			Reconcile:   cfg.Checkout.ReconcileTimeout,
		},
		Currency:   cfg.Pricing.Currency,
		SessionTTL: cfg.Checkout.SessionIdleTTL,
	})

	handler := httpx.NewHandler(orchestrator, carts, orders, validator, cfg.Pricing.Currency)
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpx.NewRouter(handler, metrics.NewServerMetrics(registry, "checkout_api"), registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("checkout api running", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		slog.Info("shutting down checkout api")
		return server.Shutdown(shutdownCtx)
	})
	if cfg.Reconciler.Enabled {
		reconciler := coordinator.NewReconciler(orders, payments, coordinator.ReconcilerOptions{
			Interval:  cfg.Reconciler.Interval,
			Grace:     cfg.Reconciler.Grace,
			BatchSize: cfg.Reconciler.BatchSize,
			Timeout:   cfg.Checkout.ReconcileTimeout,
		}, checkoutMetrics)
		g.Go(func() error { return reconciler.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		slog.Error("checkout api stopped with error", "error", err)
		os.Exit(1)
	}
}

func createGRPCConn(addr string) *grpc.ClientConn {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithUnaryInterceptor(interceptors.UnaryClientInterceptor()),
	)
	if err != nil {
		slog.Error("could not create grpc client", "addr", addr, "error", err)
		os.Exit(1)
	}
	return conn
}
