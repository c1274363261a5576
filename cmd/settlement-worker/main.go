package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/race-bet-platform/internal/bet-service/producer"
	"github.com/radieske/race-bet-platform/internal/bet-service/pubsub"
	"github.com/radieske/race-bet-platform/internal/bet-service/settlement"
	"github.com/radieske/race-bet-platform/internal/bet-service/txn"
	catalogcache "github.com/radieske/race-bet-platform/internal/catalog/cache"
	"github.com/radieske/race-bet-platform/internal/settlement-worker/consumer"
	sharedcache "github.com/radieske/race-bet-platform/internal/shared/cache"
	"github.com/radieske/race-bet-platform/internal/shared/config"
	"github.com/radieske/race-bet-platform/internal/shared/db"
	"github.com/radieske/race-bet-platform/internal/shared/kafka"
	"github.com/radieske/race-bet-platform/internal/shared/logger"
	"github.com/radieske/race-bet-platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	rdb, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	brokers := cfg.Brokers()
	reader := kafka.NewReader(brokers, cfg.TopicRaceResults, "settlement-worker")
	defer reader.Close()

	dlq := kafka.NewWriter(brokers, cfg.TopicRaceResultsDLQ)
	defer dlq.Close()

	events := kafka.NewWriter(brokers, "")
	defer events.Close()

	uow := txn.NewPostgres(pg, cfg.GiftBalance, cfg.TxTimeout)
	engine := settlement.NewEngine(log, uow,
		producer.NewKafkaPublisher(events, cfg.TopicBetPlaced, cfg.TopicEventSettled),
		pubsub.NewRedisBroadcaster(rdb, cfg.RedisPubSubChannel),
		catalogcache.New(rdb),
	)

	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_worker_messages_consumed_total", Help: "race results consumed"})
	settled := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_worker_events_settled_total", Help: "events settled from race results"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_worker_duplicates_total", Help: "race results for events already settled"})
	deadLettered := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_worker_dlq_total", Help: "race results sent to the DLQ"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_worker_errors_total", Help: "errors by stage"}, []string{"stage"})
	prometheus.MustRegister(consumed, settled, duplicates, deadLettered, errorsBy)

	proc := &consumer.Processor{
		Log:     log,
		Reader:  reader,
		Settler: engine,
		DLQ:     dlq,
		Retries: 3,
		Backoff: 300 * time.Millisecond,

		OnConsumed:  consumed.Inc,
		OnSettled:   settled.Inc,
		OnDuplicate: duplicates.Inc,
		OnDLQ:       deadLettered.Inc,
		OnError:     func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	metricsSrv, metricsErr := metrics.StartMetricsServer(cfg.MetricsPort, metrics.Checks(map[string]metrics.HealthFunc{
		"postgres": pg.PingContext,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}))
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))
	go func() {
		if err, ok := <-metricsErr; ok {
			log.Error("metrics server error", zap.Error(err))
		}
	}()

	log.Info("settlement-worker started", zap.String("topic", cfg.TopicRaceResults))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("settlement-worker stopped")
}
