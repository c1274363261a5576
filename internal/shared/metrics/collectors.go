package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	betTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bet_placements_total",
			Help: "Bet placements by result (accepted, rejected, error)",
		},
		[]string{"result"},
	)

	betDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bet_placement_duration_ms",
			Help:    "Bet placement duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result"},
	)

	settlementTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlements_total",
			Help: "Settlement attempts by result (settled, conflict, error)",
		},
		[]string{"result"},
	)

	settledBets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settled_bets_total",
		Help: "Bets resolved by settlements",
	})

	payoutTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_payout_total",
		Help: "Sum of payouts credited by settlements",
	})

	httpReqTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	httpReqDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "HTTP request duration in ms",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"route", "method"},
	)
)

// RecordBet records one placement. result is "accepted", "rejected" or "error".
func RecordBet(result string, started time.Time) {
	betTotal.WithLabelValues(result).Inc()
	betDuration.WithLabelValues(result).Observe(float64(time.Since(started).Milliseconds()))
}

// RecordSettlement records one settlement attempt; bets and payout only count
// for result "settled".
func RecordSettlement(result string, bets int, payout float64) {
	settlementTotal.WithLabelValues(result).Inc()
	if result != "settled" {
		return
	}
	settledBets.Add(float64(bets))
	payoutTotal.Add(payout)
}

func RecordHTTP(route, method string, status int, started time.Time) {
	httpReqTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpReqDuration.WithLabelValues(route, method).Observe(float64(time.Since(started).Milliseconds()))
}
