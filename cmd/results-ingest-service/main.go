package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/race-bet-platform/internal/results-ingest/publisher"
	"github.com/radieske/race-bet-platform/internal/results-ingest/service"
	"github.com/radieske/race-bet-platform/internal/shared/config"
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

	log.Info("Kafka brokers", zap.String("brokers", cfg.KafkaBrokers))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pub, err := publisher.NewKafkaPublisher(cfg.Brokers(), cfg.TopicRaceResults, cfg.Env, log)
	if err != nil {
		log.Fatal("kafka publisher", zap.Error(err))
	}
	defer pub.Close()

	received := prometheus.NewCounter(prometheus.CounterOpts{Name: "results_ingest_messages_received_total", Help: "feed messages received"})
	published := prometheus.NewCounter(prometheus.CounterOpts{Name: "results_ingest_results_published_total", Help: "race results published to Kafka"})
	invalid := prometheus.NewCounter(prometheus.CounterOpts{Name: "results_ingest_invalid_total", Help: "feed messages rejected"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "results_ingest_errors_total", Help: "errors by stage"}, []string{"stage"})
	prometheus.MustRegister(received, published, invalid, errorsBy)

	client := &service.WSClient{
		URL:       cfg.SessionsProviderWSURL,
		Log:       log,
		Publisher: pub,
		Source:    cfg.ServiceName,

		OnReceived:  received.Inc,
		OnPublished: published.Inc,
		OnInvalid:   invalid.Inc,
		OnError:     func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	metricsSrv, metricsErr := metrics.StartMetricsServer(cfg.MetricsPort, nil)
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))
	go func() {
		if err, ok := <-metricsErr; ok {
			log.Error("metrics server error", zap.Error(err))
		}
	}()

	client.Start(ctx)

	log.Info("shutdown signal received")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = metricsSrv.Shutdown(shutdownCtx)
}
