// Package app wires the API server together: configuration, storage,
// domain services, HTTP surface, and graceful shutdown.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/carepharm/api-server/internal/domain/coupon"
	"github.com/carepharm/api-server/internal/domain/order"
	"github.com/carepharm/api-server/internal/handler"
	"github.com/carepharm/api-server/internal/notify"
	"github.com/carepharm/api-server/internal/payment"
	"github.com/carepharm/api-server/internal/storage/postgres"
	"github.com/carepharm/api-server/internal/storage/redis"
	"github.com/carepharm/api-server/pkg/health"
	"github.com/carepharm/api-server/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Repositories.
	customerRepo := postgres.NewCustomerRepository(pool)
	addressRepo := postgres.NewAddressRepository(pool)
	tokenRepo := postgres.NewTokenRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	stagingRepo := postgres.NewStagingRepository(pool)

	var couponRepo coupon.Repository = postgres.NewCouponRepository(pool)
	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = client.Close() }()
		couponRepo = redis.NewCouponCache(couponRepo, client)
		healthSvc.AddReadinessCheck("redis", 2*time.Second, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		lg.Info("Coupon cache enabled", zap.String("redis", cfg.RedisAddr))
	}

	healthSvc.Start(ctx, 10*time.Second)

	// Payment gateway.
	gateway := payment.NewRazorpay(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.Currency)

	// Event publisher.
	var publisher notify.Publisher
	if cfg.AMQPURL != "" {
		amqpPub, err := notify.NewAMQPPublisher(cfg.AMQPURL, "orders")
		if err != nil {
			return errors.Wrap(err, "connect amqp")
		}
		defer func() { _ = amqpPub.Close() }()
		publisher = amqpPub
		lg.Info("Event publishing enabled")
	}

	// Domain services.
	evaluator := coupon.NewEvaluator(couponRepo)
	if filter, err := loadCouponFilter(ctx, couponRepo); err != nil {
		lg.Warn("Coupon filter preload failed", zap.Error(err))
	} else {
		evaluator.SetKnownCodes(filter)
	}

	orderService := order.NewService(
		customerRepo, orderRepo, stagingRepo,
		gateway, couponRepo, publisher,
		order.Charges{
			FreeShippingOver: decimal.NewFromInt(cfg.Checkout.FreeShippingOver),
			ShippingFee:      decimal.NewFromInt(cfg.Checkout.ShippingFee),
		},
	)

	// HTTP surface.
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	h := handler.New(orderService, evaluator, couponRepo, addressRepo)
	h.RegisterRoutes(engine, handler.Authenticate(tokenRepo, []byte(cfg.TokenPepper)))

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", engine)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("pharm-api"),
			httpmiddleware.LogRequests(),
		),
	}
	healthSvc.SetReady(true)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}

	<-shutdownDone
	lg.Info("Server stopped")
	return nil
}

// loadCouponFilter builds a bloom filter over every known coupon code so the
// evaluator can reject bogus codes without a database round trip.
func loadCouponFilter(ctx context.Context, repo coupon.Repository) (*bloom.BloomFilter, error) {
	coupons, err := repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}

	n := uint(len(coupons))
	if n < 1024 {
		n = 1024
	}
	filter := bloom.NewWithEstimates(n, 0.01)
	for _, c := range coupons {
		filter.AddString(c.Code)
	}
	return filter, nil
}
