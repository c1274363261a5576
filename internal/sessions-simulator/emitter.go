package simulator

import (
	"context"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/race-bet-platform/pkg/contracts/events"
)

const source = "sessions-simulator"

// Emitter finishes catalogue sessions one at a time with a random winner
// and broadcasts the result. Each session finishes at most once.
type Emitter struct {
	hub *Hub
	log *zap.Logger

	mu       sync.Mutex
	finished map[string]int
	rnd      *rand.Rand
}

func NewEmitter(hub *Hub, log *zap.Logger) *Emitter {
	return &Emitter{
		hub:      hub,
		log:      log,
		finished: make(map[string]int),
		rnd:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
}

// Next picks an unfinished session and a random driver from its grid.
func (e *Emitter) Next() (events.RaceResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var open []string
	for _, s := range sessions {
		key := strconv.Itoa(s.SessionKey)
		if _, done := e.finished[key]; !done {
			open = append(open, key)
		}
	}
	if len(open) == 0 {
		return events.RaceResult{}, false
	}
	key := open[e.rnd.IntN(len(open))]
	drivers := DriversFor(key)
	winner := drivers[e.rnd.IntN(len(drivers))].DriverNumber
	return e.finishLocked(key, winner), true
}

// Finish records a result chosen by the caller. Repeating a finished session
// returns the original winner with ok=false.
func (e *Emitter) Finish(eventID string, winner int) (events.RaceResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if w, done := e.finished[eventID]; done {
		return events.RaceResult{EventID: eventID, WinnerDriverID: w, Source: source}, false
	}
	return e.finishLocked(eventID, winner), true
}

func (e *Emitter) finishLocked(eventID string, winner int) events.RaceResult {
	e.finished[eventID] = winner
	r := events.RaceResult{
		EventID:        eventID,
		WinnerDriverID: winner,
		Source:         source,
		FinishedAt:     time.Now().UTC(),
	}
	for _, s := range sessions {
		if strconv.Itoa(s.SessionKey) == eventID {
			r.EventName = s.SessionName + " - " + s.CircuitShortName
		}
	}
	return r
}

// Run emits one result per tick while clients are connected.
func (e *Emitter) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if e.hub.Clients() == 0 {
			continue
		}
		r, ok := e.Next()
		if !ok {
			e.log.Debug("all sessions finished")
			continue
		}
		n := e.hub.Broadcast(r)
		e.log.Info("race result emitted",
			zap.String("event_id", r.EventID),
			zap.Int("winner_driver_id", r.WinnerDriverID),
			zap.Int("clients", n))
	}
}
