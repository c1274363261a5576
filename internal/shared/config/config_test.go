package config

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("SERVICE_NAME", "bet-service")

	cfg := fromEnv()

	if cfg.Env != "local" {
		t.Errorf("Env = %q, want local", cfg.Env)
	}
	if cfg.HTTPPort != "8083" || cfg.MetricsPort != "9099" {
		t.Errorf("ports = %s/%s, want 8083/9099", cfg.HTTPPort, cfg.MetricsPort)
	}
	if !cfg.GiftBalance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("GiftBalance = %s, want 100", cfg.GiftBalance)
	}
	if cfg.TxTimeout != 3*time.Second {
		t.Errorf("TxTimeout = %s, want 3s", cfg.TxTimeout)
	}
	if cfg.EventsCacheTTL != 30*time.Second {
		t.Errorf("EventsCacheTTL = %s, want 30s", cfg.EventsCacheTTL)
	}
	if cfg.TopicRaceResults != "race_results" || cfg.TopicEventSettled != "event_settled" {
		t.Errorf("unexpected topics %q %q", cfg.TopicRaceResults, cfg.TopicEventSettled)
	}
	if cfg.RedisPubSubChannel != "event_settled_broadcast" {
		t.Errorf("RedisPubSubChannel = %q", cfg.RedisPubSubChannel)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(t *testing.T, c Config)
	}{
		{
			name: "worker ports",
			env:  map[string]string{"SERVICE_NAME": "settlement-worker", "METRICS_PORT_SETTLEMENT": "9200"},
			check: func(t *testing.T, c Config) {
				if c.HTTPPort != "" || c.MetricsPort != "9200" {
					t.Errorf("ports = %q/%q", c.HTTPPort, c.MetricsPort)
				}
			},
		},
		{
			name: "gift and timeout",
			env:  map[string]string{"GIFT_BALANCE": "250.50", "TX_TIMEOUT": "5s"},
			check: func(t *testing.T, c Config) {
				if !c.GiftBalance.Equal(decimal.RequireFromString("250.50")) {
					t.Errorf("GiftBalance = %s", c.GiftBalance)
				}
				if c.TxTimeout != 5*time.Second {
					t.Errorf("TxTimeout = %s", c.TxTimeout)
				}
			},
		},
		{
			name: "invalid values fall back",
			env:  map[string]string{"GIFT_BALANCE": "-1", "TX_TIMEOUT": "soon"},
			check: func(t *testing.T, c Config) {
				if !c.GiftBalance.Equal(decimal.NewFromInt(100)) {
					t.Errorf("GiftBalance = %s", c.GiftBalance)
				}
				if c.TxTimeout != 3*time.Second {
					t.Errorf("TxTimeout = %s", c.TxTimeout)
				}
			},
		},
		{
			name: "broker list",
			env:  map[string]string{"KAFKA_BROKERS": "a:9092, b:9092,"},
			check: func(t *testing.T, c Config) {
				want := []string{"a:9092", "b:9092"}
				if got := c.Brokers(); !reflect.DeepEqual(got, want) {
					t.Errorf("Brokers() = %v, want %v", got, want)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			tt.check(t, fromEnv())
		})
	}
}
