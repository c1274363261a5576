package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/race-bet-platform/internal/bet-service/dto"
	"github.com/radieske/race-bet-platform/internal/bet-service/placement"
	"github.com/radieske/race-bet-platform/internal/bet-service/settlement"
	catalogdto "github.com/radieske/race-bet-platform/internal/catalog/dto"
	"github.com/radieske/race-bet-platform/internal/domain"
	"github.com/radieske/race-bet-platform/internal/shared/httpx"
	"github.com/radieske/race-bet-platform/internal/shared/metrics"
)

type Placer interface {
	PlaceBet(ctx context.Context, req placement.Request) (placement.Result, error)
}

type Settler interface {
	SettleEvent(ctx context.Context, eventID string, winnerDriverID int) (settlement.Result, error)
}

type Lister interface {
	ListEvents(ctx context.Context, f domain.EventFilter, provider string) ([]catalogdto.EventListing, error)
}

// Deps are the collaborators of the public API. WS and Wallet are optional.
type Deps struct {
	Placer  Placer
	Settler Settler
	Lister  Lister
	UOW     domain.UnitOfWork
	Wallet  http.HandlerFunc
	WS      http.HandlerFunc
}

type Server struct {
	log *zap.Logger
	d   Deps
}

func NewServer(log *zap.Logger, d Deps) *Server { return &Server{log: log, d: d} }

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/v1/events", s.listEvents)
	r.Post("/v1/events/{id}/outcome", s.settleEvent)
	r.Post("/v1/bets", s.placeBet)
	r.Get("/v1/bets/{id}", s.getBet)
	if s.d.Wallet != nil {
		r.Get("/v1/wallet", s.d.Wallet)
	}
	if s.d.WS != nil {
		r.Get("/ws", s.d.WS)
	}
	return r
}

// observe records per-route metrics using the matched chi pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RecordHTTP(route, r.Method, status, started)
	})
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.EventFilter{
		Country:     strings.TrimSpace(q.Get("country")),
		SessionType: strings.TrimSpace(q.Get("sessionType")),
	}
	if y := strings.TrimSpace(q.Get("year")); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			httpx.WriteError(w, s.log, domain.Invalidf("year must be a number"))
			return
		}
		f.Year = &year
	}

	out, err := s.d.Lister.ListEvents(r.Context(), f, q.Get("provider"))
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	if out == nil {
		out = []catalogdto.EventListing{}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, s.log, domain.Invalidf("bad json"))
		return
	}

	res, err := s.d.Placer.PlaceBet(r.Context(), placement.Request{
		UserID:   req.UserID,
		EventID:  req.EventID,
		DriverID: req.DriverID,
		Stake:    req.Stake,
	})
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}

	if !res.Accepted {
		httpx.WriteJSON(w, http.StatusBadRequest, dto.PlaceBetResponse{
			Status:  string(domain.BetFailed),
			Odds:    res.Odds,
			Message: res.Reason,
		})
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, dto.PlaceBetResponse{
		BetID:   res.BetID,
		Status:  string(res.Status),
		Odds:    res.Odds,
		Message: "bet placed",
	})
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var b domain.Bet
	err := s.d.UOW.Do(r.Context(), func(ctx context.Context, st domain.Stores) error {
		var err error
		b, err = st.Bets.Get(ctx, id)
		return err
	})
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dto.BetResponse{
		BetID:     b.ID,
		UserID:    b.UserID,
		EventID:   b.EventID,
		DriverID:  b.DriverID,
		Stake:     b.Stake.StringFixed(2),
		Odds:      b.Odds,
		Status:    string(b.Status),
		PlacedAt:  b.PlacedAt,
		SettledAt: b.SettledAt,
	})
}

func (s *Server) settleEvent(w http.ResponseWriter, r *http.Request) {
	var req dto.OutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, s.log, domain.Invalidf("bad json"))
		return
	}

	res, err := s.d.Settler.SettleEvent(r.Context(), chi.URLParam(r, "id"), req.WinnerDriverID)
	if err != nil {
		httpx.WriteError(w, s.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dto.OutcomeResponse{
		EventID:        res.EventID,
		WinnerDriverID: res.WinnerDriverID,
		BetsSettled:    res.BetsSettled,
		TotalPayout:    res.TotalPayout.StringFixed(2),
		Message:        "event settled",
	})
}
