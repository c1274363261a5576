package main

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/race-bet-platform/internal/gateway"
	"github.com/radieske/race-bet-platform/internal/shared/config"
	"github.com/radieske/race-bet-platform/internal/shared/logger"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	h, err := gateway.NewRouter(log, gateway.Targets{
		Bet:      cfg.BetServiceURL,
		Sessions: cfg.SessionsProviderURL,
	})
	if err != nil {
		log.Fatal("gateway routes", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info("api-gateway listening",
		zap.String("addr", srv.Addr),
		zap.String("bet", cfg.BetServiceURL),
		zap.String("sessions", cfg.SessionsProviderURL))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("gateway failed", zap.Error(err))
	}
}
