// Package app wires the configuration, storage, domain services, and HTTP
// surface into runnable processes.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/greenbasket/commerce-api/internal/api"
	"github.com/greenbasket/commerce-api/internal/domain/coupon"
	"github.com/greenbasket/commerce-api/internal/domain/order"
	"github.com/greenbasket/commerce-api/internal/domain/shipping"
	"github.com/greenbasket/commerce-api/internal/notify"
	"github.com/greenbasket/commerce-api/internal/razorpay"
	"github.com/greenbasket/commerce-api/internal/storage/postgres"
	"github.com/greenbasket/commerce-api/pkg/health"
	"github.com/greenbasket/commerce-api/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the API server.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
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
	productRepo := postgres.NewProductRepository(pool)
	couponRepo := postgres.NewCouponRepository(pool)
	shippingRepo := postgres.NewShippingRepository(pool)
	orderStore := postgres.NewOrderStore(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)

	// Coupon prefilter warm-up. A failed warm-up only loses the fast path.
	var filter *coupon.CodeFilter
	if codes, err := couponRepo.ListActiveCodes(ctx); err != nil {
		lg.Warn("Coupon prefilter warm-up failed", zap.Error(err))
	} else {
		filter = coupon.NewCodeFilter(codes)
		lg.Info("Coupon prefilter loaded", zap.Int("codes", len(codes)))
	}

	// Admin coupon writes go through the filter-sync decorator so new codes
	// validate at checkout without a restart.
	adminCoupons := coupon.WithFilterSync(couponRepo, filter)

	// Domain services.
	quoter := shipping.NewQuoter(shippingRepo, shipping.DefaultConfig())
	validator := coupon.NewRepoValidator(couponRepo, filter)
	gateway := razorpay.New(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)

	var hooks []order.Hook
	if len(cfg.Kafka.Brokers) > 0 {
		pub := notify.NewWriterPublisher(notify.NewWriter(cfg.Kafka.Brokers))
		defer func() { _ = pub.Close() }()
		hooks = append(hooks, notify.NewKafkaHook(pub))
		lg.Info("Order events enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	orderService := order.NewService(
		productRepo, quoter, validator, gateway, orderStore, lg, hooks...,
	)

	// HTTP surface.
	handler := api.NewHandler(
		orderService, productRepo, adminCoupons, shippingRepo, orderStore,
		apikeyRepo, []byte(cfg.APIKeyPepper), healthSvc,
	)
	routes := handler.Routes(ctx, api.RateLimitConfig{
		Max:    cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
	})

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(
			otelhttp.NewHandler(routes, "commerce-api",
				otelhttp.WithTracerProvider(m.TracerProvider()),
				otelhttp.WithMeterProvider(m.MeterProvider()),
			),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
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
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// RunWorker starts the notification worker: it consumes order events from
// Kafka and fans them out to email and WhatsApp.
func RunWorker(ctx context.Context, lg *zap.Logger, cfg *Config) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("kafka brokers are required: set BASKET_KAFKA_BROKERS")
	}

	reader := notify.NewReader(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
	defer func() { _ = reader.Close() }()

	var mailer notify.Mailer
	if cfg.SMTP.Host != "" {
		mailer = notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	} else {
		lg.Warn("SMTP host not configured, email notifications disabled")
	}

	var whatsapp notify.WhatsAppSender
	if cfg.WhatsApp.AccessToken != "" {
		whatsapp = notify.NewWhatsAppClient(notify.WhatsAppConfig{
			PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
			AccessToken:   cfg.WhatsApp.AccessToken,
		})
	} else {
		lg.Warn("WhatsApp token not configured, WhatsApp notifications disabled")
	}

	lg.Info("Notification worker consuming",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("group", cfg.Kafka.GroupID),
	)

	err := notify.NewWorker(reader, mailer, whatsapp, lg).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
