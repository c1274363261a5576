package simulator

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/radieske/race-bet-platform/internal/domain"
	"github.com/radieske/race-bet-platform/internal/shared/httpx"
)

// Server serves an OpenF1-compatible subset plus the results feed.
type Server struct {
	log     *zap.Logger
	hub     *Hub
	emitter *Emitter
}

func NewServer(log *zap.Logger, hub *Hub, emitter *Emitter) *Server {
	return &Server{log: log, hub: hub, emitter: emitter}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/v1/sessions", s.listSessions)
	r.Get("/v1/drivers", s.listDrivers)
	r.Post("/v1/results", s.finishSession)
	r.Get("/ws", s.hub.HandleWS)
	return r
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	httpx.WriteJSON(w, http.StatusOK, FilterSessions(SessionQuery{
		Year:        q.Get("year"),
		Country:     q.Get("country_name"),
		SessionName: q.Get("session_name"),
	}))
}

// listDrivers answers an unknown session with an empty array, like OpenF1.
func (s *Server) listDrivers(w http.ResponseWriter, r *http.Request) {
	drivers := DriversFor(r.URL.Query().Get("session_key"))
	if drivers == nil {
		httpx.WriteJSON(w, http.StatusOK, []any{})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, drivers)
}

type finishRequest struct {
	EventID        string `json:"event_id"`
	WinnerDriverID int    `json:"winner_driver_id"`
}

// finishSession forces a result for a session and broadcasts it. Repeating a
// finished session rebroadcasts the original result, which lets the
// downstream duplicate handling be exercised by hand.
func (s *Server) finishSession(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req finishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, s.log, domain.Invalidf("invalid body: %v", err))
		return
	}

	drivers := DriversFor(req.EventID)
	if drivers == nil {
		httpx.WriteError(w, s.log, domain.NotFoundf("session %q", req.EventID))
		return
	}
	onGrid := false
	for _, d := range drivers {
		onGrid = onGrid || d.DriverNumber == req.WinnerDriverID
	}
	if !onGrid {
		httpx.WriteError(w, s.log, domain.Invalidf("driver %d is not on the grid of session %s", req.WinnerDriverID, req.EventID))
		return
	}

	res, fresh := s.emitter.Finish(req.EventID, req.WinnerDriverID)
	n := s.hub.Broadcast(res)
	s.log.Info("race result forced",
		zap.String("event_id", res.EventID),
		zap.Int("winner_driver_id", res.WinnerDriverID),
		zap.Bool("repeat", !fresh),
		zap.Int("clients", n))

	status := http.StatusCreated
	if !fresh {
		status = http.StatusOK
	}
	httpx.WriteJSON(w, status, res)
}
