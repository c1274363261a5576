package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Targets are the upstream base URLs behind the gateway.
type Targets struct {
	Bet      string // bet-service: events, bets, wallet, settlement ws
	Sessions string // sessions provider or simulator
}

// NewRouter mounts each upstream under /api/<name>, stripping the prefix:
// /api/bets/v1/events reaches the bet-service as /v1/events.
func NewRouter(log *zap.Logger, t Targets) (http.Handler, error) {
	bet, err := proxy(log, "bets", t.Bet)
	if err != nil {
		return nil, err
	}
	sessions, err := proxy(log, "sessions", t.Sessions)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(withCORS)

	r.Mount("/api/bets", http.StripPrefix("/api/bets", bet))
	r.Mount("/api/sessions", http.StripPrefix("/api/sessions", sessions))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return r, nil
}

func proxy(log *zap.Logger, name, target string) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid %s upstream %q", name, target)
	}
	p := httputil.NewSingleHostReverseProxy(u)
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn("upstream failed",
			zap.String("upstream", name),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}
	return p, nil
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
