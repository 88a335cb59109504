package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"krishichain/internal/custody"
	"krishichain/internal/dashboard"
	"krishichain/internal/identity"
	"krishichain/internal/jwttoken"
	"krishichain/internal/ledger"
	"krishichain/internal/platform/config"
	"krishichain/internal/platform/httpserver"
	"krishichain/internal/platform/logger"
	"krishichain/internal/platform/metrics"
	platformredis "krishichain/internal/platform/redis"
	"krishichain/internal/product"
	httptransport "krishichain/internal/transport/http"
	"krishichain/internal/verify"
)

// main wires the dependency graph and owns the process lifecycle. Business
// logic lives in the internal services; nothing here decides anything.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Storage: postgres when DATABASE_URL is set, in-memory otherwise. The
	// in-memory mode exists for local development and demos.
	var (
		identityStore identity.Store
		stores        custody.Stores
		custodyTx     custody.Tx
		eventStore    verify.EventStore
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		db.SetMaxOpenConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			return err
		}

		identityStore = identity.NewPostgres(db)
		stores = custody.Stores{
			Products: product.NewPostgres(db),
			Records:  custody.NewPostgresRecordStore(db),
			Ledger:   ledger.NewPostgres(db),
		}
		custodyTx = newCustodyPostgresTx(db, stores)
		eventStore = verify.NewPostgresEventStore(db)
		log.Info("using postgres storage")
	} else {
		identityStore = identity.NewInMemoryStore()
		stores = custody.Stores{
			Products: product.NewInMemoryStore(),
			Records:  custody.NewInMemoryRecordStore(),
			Ledger:   ledger.NewInMemoryStore(),
		}
		custodyTx = custody.NewShardedTx(stores)
		eventStore = verify.NewInMemoryEventStore()
		log.Info("using in-memory storage")
	}

	identitySvc := identity.NewService(identityStore)
	tokens := jwttoken.NewService(cfg.JWTSigningKey, cfg.TokenTTL)

	// Optional collaborators degrade to nil when unconfigured.
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	var cacheClient *redis.Client
	if redisClient != nil {
		defer redisClient.Close()
		cacheClient = redisClient.Client
		log.Info("report cache enabled", "url", cfg.Redis.URL)
	}
	reportCache := verify.NewReportCache(cacheClient, cfg.VerifyCacheTTL, log)

	publisher, err := ledger.NewPublisher(cfg.Kafka, log)
	if err != nil {
		return err
	}
	if publisher != nil {
		defer publisher.Close()
		log.Info("ledger publisher enabled", "topic", cfg.Kafka.Topic)
	}

	engine := custody.NewEngine(custodyTx, log, m,
		custody.WithReportInvalidator(reportCache),
		custody.WithEntryPublisher(publisher),
	)
	assembler := verify.NewAssembler(custodyTx, identitySvc, reportCache, cfg.VerificationQueueSize, log, m)
	dashboards := dashboard.NewService(stores.Products, stores.Records)

	handler := httptransport.NewHandler(log, identitySvc, tokens, engine, assembler, dashboards)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	worker := verify.NewWorker(eventStore, assembler.Events(), log, m)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting krishichain api", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
