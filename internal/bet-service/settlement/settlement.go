package settlement

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/race-bet-platform/internal/domain"
	"github.com/radieske/race-bet-platform/internal/shared/metrics"
	"github.com/radieske/race-bet-platform/pkg/contracts/events"
)

// Notifier is told about each committed settlement (Kafka, Redis pub/sub,
// listing cache). Failures are logged only.
type Notifier interface {
	NotifyEventSettled(ctx context.Context, e events.EventSettled) error
}

type Result struct {
	EventID        string
	WinnerDriverID int
	BetsSettled    int
	TotalPayout    decimal.Decimal
}

// Engine commits an event outcome exactly once and resolves its pending bets.
type Engine struct {
	log       *zap.Logger
	uow       domain.UnitOfWork
	notifiers []Notifier
	now       func() time.Time
}

func NewEngine(log *zap.Logger, uow domain.UnitOfWork, notifiers ...Notifier) *Engine {
	return &Engine{log: log, uow: uow, notifiers: notifiers, now: time.Now}
}

// SettleEvent sets the outcome if unset, pays winning bets stake*odds and
// marks the rest LOST, all in one unit of work. A second settlement of the
// same event is a Conflict and changes nothing.
func (e *Engine) SettleEvent(ctx context.Context, eventID string, winnerDriverID int) (Result, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return Result{}, domain.Invalidf("eventId is required")
	}
	if winnerDriverID <= 0 {
		return Result{}, domain.Invalidf("winnerDriverId is required")
	}

	res := Result{EventID: eventID, WinnerDriverID: winnerDriverID, TotalPayout: decimal.Zero}
	var settledAt time.Time
	err := e.uow.Do(ctx, func(ctx context.Context, st domain.Stores) error {
		ok, err := st.Catalog.CommitOutcome(ctx, eventID, winnerDriverID)
		if err != nil {
			return err
		}
		if !ok {
			if _, err := st.Catalog.GetEvent(ctx, eventID); err != nil {
				return err
			}
			return domain.Conflictf("outcome already set for event %s", eventID)
		}

		pending, err := st.Bets.ListByEventAndStatus(ctx, eventID, domain.BetPending)
		if err != nil {
			return err
		}

		settledAt = e.now().UTC()
		for _, b := range pending {
			b.SettledAt = &settledAt
			if b.DriverID == winnerDriverID {
				payout := b.Payout()
				if err := st.Ledger.Credit(ctx, b.UserID, payout, b.ID); err != nil {
					if domain.IsNotFound(err) {
						return domain.Integrityf("bet %s references missing account %s", b.ID, b.UserID)
					}
					return err
				}
				b.Status = domain.BetWon
				res.TotalPayout = res.TotalPayout.Add(payout)
			} else {
				b.Status = domain.BetLost
			}
			if err := st.Bets.Resolve(ctx, b); err != nil {
				return err
			}
			res.BetsSettled++
		}
		return nil
	})
	if err != nil {
		switch {
		case domain.IsConflict(err):
			metrics.RecordSettlement("conflict", 0, 0)
		default:
			metrics.RecordSettlement("error", 0, 0)
		}
		return Result{}, err
	}

	payout, _ := res.TotalPayout.Float64()
	metrics.RecordSettlement("settled", res.BetsSettled, payout)
	e.log.Info("event settled",
		zap.String("event_id", eventID),
		zap.Int("winner_driver_id", winnerDriverID),
		zap.Int("bets_settled", res.BetsSettled),
		zap.String("total_payout", res.TotalPayout.StringFixed(2)))

	e.notify(ctx, events.EventSettled{
		EventID:        eventID,
		WinnerDriverID: winnerDriverID,
		BetsSettled:    res.BetsSettled,
		TotalPayout:    res.TotalPayout.StringFixed(2),
		SettledAt:      settledAt,
	})
	return res, nil
}

func (e *Engine) notify(ctx context.Context, ev events.EventSettled) {
	for _, n := range e.notifiers {
		if err := n.NotifyEventSettled(ctx, ev); err != nil {
			e.log.Warn("settlement notification failed", zap.String("event_id", ev.EventID), zap.Error(err))
		}
	}
}
