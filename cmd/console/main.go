// console serves the session-issuance workflow over gRPC (issuance.v1.IssuanceService and grpc.health.v1).
// Configure with .env or environment variables; see internal/config.
package main

import (
	"context"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"session-issuance-console/internal/audit"
	auditrepo "session-issuance-console/internal/audit/repository"
	"session-issuance-console/internal/backend"
	"session-issuance-console/internal/config"
	"session-issuance-console/internal/country"
	"session-issuance-console/internal/credcache"
	"session-issuance-console/internal/db"
	healthhandler "session-issuance-console/internal/health/handler"
	inventoryservice "session-issuance-console/internal/inventory/service"
	issuancehandler "session-issuance-console/internal/issuance/handler"
	"session-issuance-console/internal/issuance/service"
	"session-issuance-console/internal/operator"
	"session-issuance-console/internal/platform/scheduler"
	"session-issuance-console/internal/security"
	"session-issuance-console/internal/server"
	"session-issuance-console/internal/server/interceptors"
	"session-issuance-console/internal/telemetry"
	telemetryotel "session-issuance-console/internal/telemetry/otel"
	"session-issuance-console/internal/telemetry/producer"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTelEndpoint, cfg.OTelServiceName, cfg.OTelInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	metrics, err := telemetry.NewMetrics(providers.MeterProvider)
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}
	events := telemetry.Fanout{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	if kafka := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.InventoryEventsTopic); kafka != nil {
		events = append(events, kafka)
		defer kafka.Close()
		slog.Info("issuance events streaming to kafka", "component", "console", "topic", cfg.InventoryEventsTopic)
	}

	holder, err := newOperatorHolder(cfg)
	if err != nil {
		log.Fatalf("operator: %v", err)
	}
	client := backend.NewClient(cfg.BackendBaseURL, holder, cfg.BackendRequestTimeout())
	if cfg.AdminPassword != "" {
		password := cfg.AdminPassword
		holder.SetLogin(func(ctx context.Context) (string, error) { return client.Login(ctx, password) })
	}

	catalog := country.NewCatalog(client, cfg.CatalogSnapshotTTL())
	if _, err := catalog.Refresh(ctx); err != nil {
		slog.Warn("initial catalog load failed; retrying on first finalize", "component", "console", "error", err)
	}

	checks := []healthhandler.Check{{Name: "backend", Fn: client.Ping}}

	pending, memPending, closePending, err := newPendingStore(ctx, cfg)
	if err != nil {
		log.Fatalf("pending store: %v", err)
	}
	defer closePending()
	if rs, ok := pending.(*credcache.RedisStore); ok {
		checks = append(checks, healthhandler.Check{Name: "redis", Fn: rs.Ping})
	}

	var (
		auditLogger audit.AuditLogger
		auditTrail  *auditrepo.PostgresRepository
	)
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		defer conn.Close()
		auditTrail = auditrepo.NewPostgresRepository(conn)
		auditLogger = audit.NewLogger(auditTrail, interceptors.ClientIP)
		checks = append(checks, healthhandler.PingerCheck("postgres", conn))
	}

	ctrl := service.NewController(service.Deps{
		Verifier:   client,
		Finalizer:  inventoryservice.NewFinalizer(catalog, client, cfg.AccountType),
		Pending:    pending,
		PendingTTL: cfg.PendingTTL(),
		IdleTTL:    cfg.IdleTTL(),
		Events:     events,
		Metrics:    metrics,
	})

	issuance := issuancehandler.NewServer(ctrl, catalog)
	if auditTrail != nil {
		issuance.WithAuditTrail(auditTrail)
	}
	health := healthhandler.NewServer([]string{issuancehandler.ServiceName}, checks...)
	grpcServer := server.NewServer(server.Deps{
		Issuance: issuance,
		Health:   health,
		Audit:    auditLogger,
	})

	sweeper, err := scheduler.New("issuance-sweeper", cfg.SweepEvery(), func(ctx context.Context) {
		swept := ctrl.SweepIdle(ctx)
		expired := 0
		if memPending != nil {
			expired = memPending.Sweep()
		}
		if swept > 0 || expired > 0 {
			slog.Info("swept issuance state", "component", "console", "sessions", swept, "pending_credentials", expired)
		}
	})
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	readiness, err := scheduler.New("health-refresh", cfg.SweepEvery(), func(ctx context.Context) {
		_ = health.Refresh(ctx)
	})
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	sweeper.Start(ctx)
	readiness.Start(ctx)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	go func() {
		slog.Info("gRPC server listening", "component", "console", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down gRPC server", "component", "console")
	health.Shutdown()
	readiness.Stop()
	sweeper.Stop()

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		grpcServer.Stop()
	}
	time.Sleep(telemetry.ShutdownDrainDuration)
	slog.Info("gRPC server stopped", "component", "console")
}

// newOperatorHolder seeds the token holder from ADMIN_TOKEN when given.
func newOperatorHolder(cfg *config.Config) (*operator.Holder, error) {
	if cfg.AdminToken == "" {
		return operator.NewHolder(nil, nil), nil
	}
	sess, err := operator.NewSession(cfg.AdminToken)
	if err != nil {
		return nil, err
	}
	return operator.NewHolder(sess, nil), nil
}

// newPendingStore returns the Redis store when REDIS_ADDR is set, else an in-memory store (also
// returned as the second value so it can be swept).
func newPendingStore(ctx context.Context, cfg *config.Config) (credcache.Store, *credcache.MemoryStore, func(), error) {
	if cfg.RedisAddr == "" {
		mem := credcache.NewMemoryStore()
		return mem, mem, func() {}, nil
	}
	key, err := cfg.SealKey()
	if err != nil {
		return nil, nil, nil, err
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	store := credcache.NewRedisStore(rdb, security.NewSealer(key))
	if err := store.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, nil, nil, err
	}
	return store, nil, func() { _ = rdb.Close() }, nil
}
