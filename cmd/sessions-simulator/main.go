package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	simulator "github.com/radieske/race-bet-platform/internal/sessions-simulator"
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

	prometheus.MustRegister(simulator.Collectors()...)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	hub := simulator.NewHub(log)
	emitter := simulator.NewEmitter(hub, log)
	go emitter.Run(ctx, 20*time.Second)

	metricsSrv, metricsErr := metrics.StartMetricsServer(cfg.MetricsPort, nil)
	log.Info("sessions simulator (metrics) running",
		zap.String("addr", metricsSrv.Addr),
		zap.String("paths", "/healthz,/metrics"),
	)
	go func() {
		if err, ok := <-metricsErr; ok {
			log.Error("metrics server error", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           simulator.NewServer(log, hub, emitter).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = metricsSrv.Shutdown(shutdownCtx)
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("sessions simulator (public) running",
		zap.String("addr", srv.Addr),
		zap.String("paths", "/v1/sessions,/v1/drivers,/v1/results,/ws"),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("public server error", zap.Error(err))
	}
}
