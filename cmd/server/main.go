// server runs the tenant HTTP API, the gRPC health service, the Telegram poller and the
// expiry purge loop in one process.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"tg-otp-relay/backend/internal/api/handler"
	"tg-otp-relay/backend/internal/audit"
	"tg-otp-relay/backend/internal/bot"
	"tg-otp-relay/backend/internal/config"
	"tg-otp-relay/backend/internal/delivery"
	"tg-otp-relay/backend/internal/devotp"
	healthhandler "tg-otp-relay/backend/internal/health/handler"
	identitysvc "tg-otp-relay/backend/internal/identity/service"
	linksvc "tg-otp-relay/backend/internal/link/service"
	otpsvc "tg-otp-relay/backend/internal/otp/service"
	"tg-otp-relay/backend/internal/purge"
	"tg-otp-relay/backend/internal/security"
	"tg-otp-relay/backend/internal/server"
	"tg-otp-relay/backend/internal/server/middleware"
	"tg-otp-relay/backend/internal/storage"
	"tg-otp-relay/backend/internal/telemetry"
	telemetryotel "tg-otp-relay/backend/internal/telemetry/otel"
	"tg-otp-relay/backend/internal/telemetry/producer"
	tenantsvc "tg-otp-relay/backend/internal/tenant/service"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg); err != nil {
		log.Fatalf("server: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	trusted, err := middleware.ParseTrustedProxies(cfg.TrustedProxiesList())
	if err != nil {
		return fmt.Errorf("config: TRUSTED_PROXIES: %w", err)
	}

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		return err
	}
	providers.SetGlobal()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = providers.Shutdown(sctx)
	}()

	stores, err := storage.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()
	log.Printf("storage: %s", cfg.StorageIdentifier())

	hasher := security.NewHasher(cfg.BcryptCost)
	if stores.DB == nil && cfg.Env != "production" {
		created, err := tenantsvc.NewProvisioner(stores.Tenants, hasher).EnsureSample(ctx)
		if err != nil {
			return err
		}
		if created {
			log.Printf("storage: in-memory mode, seeded sample tenant %s", tenantsvc.SampleTenantID)
		}
	}

	emitters := []telemetry.EventEmitter{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	if counter, err := telemetryotel.NewCountingEmitter(providers.MeterProvider); err != nil {
		log.Printf("telemetry: event counter disabled: %v", err)
	} else {
		emitters = append(emitters, counter)
	}
	if kp := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic); kp != nil {
		defer kp.Close()
		emitters = append(emitters, kp)
		log.Printf("telemetry: producing events to Kafka topic %s", cfg.TelemetryKafkaTopic)
	}
	emitter := telemetry.Multi(emitters...)

	links := linksvc.NewRegistry(stores.Links, stores.Tenants, cfg.LinkCodeLifetime())
	otps := otpsvc.NewRegistry(stores.OTPs, stores.Links, cfg.OTPLifetime())
	purgeTargets := []purge.Target{
		{Name: "linking codes", Purger: links},
		{Name: "otp records", Purger: otps},
	}
	purge.Once(ctx, purgeTargets...)

	var gateway delivery.Gateway
	var poller *bot.Poller
	if cfg.TelegramBotToken != "" {
		tg, err := delivery.NewBot(cfg.TelegramBotToken, "", time.Duration(cfg.TelegramPollTimeout)*time.Second)
		if err != nil {
			return err
		}
		log.Printf("telegram: authorized as @%s", tg.Self.UserName)
		sender := delivery.NewTelegramSender(tg)
		gateway = sender
		poller = bot.NewPoller(tg, bot.NewRouter(links, emitter), sender, cfg.TelegramPollTimeout)
	} else {
		log.Println("telegram: TELEGRAM_BOT_TOKEN not set; bot and OTP delivery disabled")
	}

	var dev devotp.Store
	if cfg.OTPReturnToClient {
		dev = devotp.NewMemoryStore()
		log.Println("devotp: dev delivery enabled; GET /dev/otp is mounted")
	}

	pingers := map[string]healthhandler.Pinger{}
	if stores.DB != nil {
		pingers["postgres"] = stores.DB
	}
	if ping := stores.RedisPing(); ping != nil {
		pingers["redis"] = healthhandler.PingerFunc(ping)
	}
	checker := healthhandler.NewChecker(cfg.StorageIdentifier(), pingers)

	httpSrv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.NewRouter(server.Deps{
			API:            handler.New(links, otps, handler.Options{Gateway: gateway, DevStore: dev, Emitter: emitter}),
			Authenticator:  identitysvc.NewAuthenticator(stores.Tenants, hasher),
			Health:         checker,
			Audit:          audit.NewLogger(stores.Audit, middleware.ClientIPFromContext),
			Emitter:        emitter,
			TrustedProxies: trusted,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	bgCtx, cancelBg := context.WithCancel(ctx)
	defer cancelBg()
	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		purge.Every(bgCtx, cfg.PurgeEvery(), purgeTargets...)
	}()
	if poller != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Run(bgCtx)
		}()
	}

	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		hs := health.NewServer()
		grpcSrv = server.NewGRPCServer(hs)
		wg.Add(1)
		go func() {
			defer wg.Done()
			healthhandler.Watch(bgCtx, checker, hs, healthhandler.DefaultWatchInterval)
		}()
		go func() {
			log.Printf("gRPC health server listening on %s", cfg.GRPCAddr)
			if err := grpcSrv.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	log.Println("shutting down...")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(sctx); err != nil {
		log.Printf("http: shutdown: %v", err)
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	cancelBg()
	wg.Wait()
	// Let in-flight async telemetry finish before the providers shut down.
	time.Sleep(telemetry.ShutdownDrainDuration)
	log.Println("server stopped")
	return serveErr
}
