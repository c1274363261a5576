package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	bethttp "github.com/radieske/race-bet-platform/internal/bet-service/http"
	"github.com/radieske/race-bet-platform/internal/bet-service/placement"
	"github.com/radieske/race-bet-platform/internal/bet-service/producer"
	"github.com/radieske/race-bet-platform/internal/bet-service/pubsub"
	"github.com/radieske/race-bet-platform/internal/bet-service/settlement"
	"github.com/radieske/race-bet-platform/internal/bet-service/txn"
	"github.com/radieske/race-bet-platform/internal/bet-service/ws"
	catalogcache "github.com/radieske/race-bet-platform/internal/catalog/cache"
	"github.com/radieske/race-bet-platform/internal/catalog/provider"
	catalogservice "github.com/radieske/race-bet-platform/internal/catalog/service"
	"github.com/radieske/race-bet-platform/internal/domain"
	"github.com/radieske/race-bet-platform/internal/memstore"
	sharedcache "github.com/radieske/race-bet-platform/internal/shared/cache"
	"github.com/radieske/race-bet-platform/internal/shared/config"
	"github.com/radieske/race-bet-platform/internal/shared/db"
	"github.com/radieske/race-bet-platform/internal/shared/kafka"
	"github.com/radieske/race-bet-platform/internal/shared/logger"
	"github.com/radieske/race-bet-platform/internal/shared/metrics"
	wallethttp "github.com/radieske/race-bet-platform/internal/wallet/http"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]metrics.HealthFunc{}

	// Ledger backend
	var uow domain.UnitOfWork
	switch cfg.StoreBackend {
	case "memory":
		log.Warn("using in-memory store; balances and bets are lost on restart")
		uow = memstore.New(cfg.GiftBalance)
	default:
		pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("postgres connect", zap.Error(err))
		}
		defer pg.Close()

		applied, err := db.RunMigrations(ctx, pg)
		if err != nil {
			log.Fatal("migrations", zap.Error(err))
		}
		if len(applied) > 0 {
			log.Info("migrations applied", zap.Strings("files", applied))
		}
		uow = txn.NewPostgres(pg, cfg.GiftBalance, cfg.TxTimeout)
		checks["postgres"] = pg.PingContext
	}

	// Redis: listing cache, settlement broadcast and its subscriber
	rdb, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()
	checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }

	// Kafka writer without a fixed topic; each message names its own
	writer := kafka.NewWriter(cfg.Brokers(), "")
	defer writer.Close()
	kpub := producer.NewKafkaPublisher(writer, cfg.TopicBetPlaced, cfg.TopicEventSettled)

	// Catalog
	registry := provider.NewRegistry(provider.NewOpenF1(cfg.SessionsProviderURL, log))
	if err := registry.SetDefault(cfg.DefaultProvider); err != nil {
		log.Fatal("default provider", zap.Error(err))
	}
	catalog := catalogservice.New(log, uow, registry, catalogcache.New(rdb), cfg.EventsCacheTTL)

	placer := placement.NewService(log, uow, catalog, kpub)
	engine := settlement.NewEngine(log, uow,
		kpub,
		pubsub.NewRedisBroadcaster(rdb, cfg.RedisPubSubChannel),
		catalog,
	)

	hub := ws.NewHub(log, func(*http.Request) bool { return true })

	api := bethttp.NewServer(log, bethttp.Deps{
		Placer:  placer,
		Settler: engine,
		Lister:  catalog,
		UOW:     uow,
		Wallet:  wallethttp.NewServer(log, uow).GetWallet,
		WS:      hub.HandleWS,
	})
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	metricsSrv, metricsErr := metrics.StartMetricsServer(cfg.MetricsPort, metrics.Checks(checks))
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("bet-service listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// settlements from the worker reach local ws clients through redis too
	g.Go(func() error {
		return runSubscriber(gctx, rdb, cfg.RedisPubSubChannel, hub, log)
	})

	g.Go(func() error {
		select {
		case err, ok := <-metricsErr:
			if ok {
				return err
			}
			return nil
		case <-gctx.Done():
			return nil
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
		return apiSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("bet-service stopped with error", zap.Error(err))
	}
	log.Info("bet-service stopped")
}

// runSubscriber keeps the redis subscription alive until ctx ends.
func runSubscriber(ctx context.Context, rdb *redis.Client, channel string, hub *ws.Hub, log *zap.Logger) error {
	for {
		err := ws.RunRedisSubscriber(ctx, rdb, channel, hub, log)
		if ctx.Err() != nil {
			return nil
		}
		log.Warn("redis subscriber stopped, retrying", zap.Error(err))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
		}
	}
}
