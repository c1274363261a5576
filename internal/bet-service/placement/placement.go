package placement

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/race-bet-platform/internal/domain"
	"github.com/radieske/race-bet-platform/internal/shared/metrics"
	"github.com/radieske/race-bet-platform/pkg/contracts/events"
)

// Catalog resolves the event and the odds for a driver inside the caller's
// unit of work.
type Catalog interface {
	ResolveEvent(ctx context.Context, store domain.CatalogStore, eventID string) (domain.Event, error)
	ResolveOrBindDriver(ctx context.Context, store domain.CatalogStore, eventID string, driverID int) (domain.EventDriver, error)
}

type Publisher interface {
	PublishBetPlaced(ctx context.Context, e events.BetPlaced) error
}

type Request struct {
	UserID   string
	EventID  string
	DriverID int
	Stake    decimal.Decimal
}

// Result is Accepted with a bet id, or rejected with a Reason. Both carry the odds.
type Result struct {
	Accepted bool
	BetID    string
	Odds     int
	Status   domain.BetStatus
	Reason   string
}

type Service struct {
	log     *zap.Logger
	uow     domain.UnitOfWork
	catalog Catalog
	pub     Publisher
	now     func() time.Time
	newID   func() string
}

// NewService wires the placement flow. pub may be nil.
func NewService(log *zap.Logger, uow domain.UnitOfWork, catalog Catalog, pub Publisher) *Service {
	return &Service{log: log, uow: uow, catalog: catalog, pub: pub, now: time.Now, newID: uuid.NewString}
}

// PlaceBet validates the request, debits the stake and records a PENDING bet
// in one unit of work. A short balance is a rejected Result, not an error,
// and leaves nothing behind.
func (s *Service) PlaceBet(ctx context.Context, req Request) (Result, error) {
	started := time.Now()

	req.UserID = strings.TrimSpace(req.UserID)
	req.EventID = strings.TrimSpace(req.EventID)
	if err := validate(req); err != nil {
		metrics.RecordBet("invalid", started)
		return Result{}, err
	}

	var (
		res Result
		bet domain.Bet
	)
	err := s.uow.Do(ctx, func(ctx context.Context, st domain.Stores) error {
		ev, err := s.catalog.ResolveEvent(ctx, st.Catalog, req.EventID)
		if err != nil {
			return err
		}
		if ev.Settled() {
			return domain.Conflictf("event %s is already settled", ev.ID)
		}

		driver, err := s.catalog.ResolveOrBindDriver(ctx, st.Catalog, ev.ID, req.DriverID)
		if err != nil {
			return err
		}

		if _, err := st.Ledger.EnsureAccount(ctx, req.UserID); err != nil {
			return err
		}

		betID := s.newID()
		ok, err := st.Ledger.DebitIfSufficient(ctx, req.UserID, req.Stake, betID)
		if err != nil {
			return err
		}
		if !ok {
			res = Result{Accepted: false, Odds: driver.Odds, Status: domain.BetFailed, Reason: domain.ReasonInsufficientBalance}
			// no bet row; the ensured account still commits
			return nil
		}

		bet = domain.Bet{
			ID:       betID,
			UserID:   req.UserID,
			EventID:  ev.ID,
			DriverID: driver.DriverID,
			Stake:    req.Stake,
			Odds:     driver.Odds,
			Status:   domain.BetPending,
			PlacedAt: s.now().UTC(),
		}
		if err := st.Bets.Insert(ctx, bet); err != nil {
			return err
		}
		res = Result{Accepted: true, BetID: betID, Odds: driver.Odds, Status: domain.BetPending}
		return nil
	})
	if err != nil {
		metrics.RecordBet("error", started)
		return Result{}, err
	}

	if !res.Accepted {
		metrics.RecordBet("rejected", started)
		s.log.Info("bet rejected",
			zap.String("user_id", req.UserID),
			zap.String("event_id", req.EventID),
			zap.String("reason", res.Reason))
		return res, nil
	}

	metrics.RecordBet("accepted", started)
	s.log.Info("bet placed",
		zap.String("bet_id", bet.ID),
		zap.String("user_id", bet.UserID),
		zap.String("event_id", bet.EventID),
		zap.Int("driver_id", bet.DriverID),
		zap.String("stake", bet.Stake.StringFixed(2)),
		zap.Int("odds", bet.Odds))
	s.publish(ctx, bet)
	return res, nil
}

// publish is best effort: the bet is already committed.
func (s *Service) publish(ctx context.Context, b domain.Bet) {
	if s.pub == nil {
		return
	}
	err := s.pub.PublishBetPlaced(ctx, events.BetPlaced{
		BetID:    b.ID,
		UserID:   b.UserID,
		EventID:  b.EventID,
		DriverID: b.DriverID,
		Stake:    b.Stake.StringFixed(2),
		Odds:     b.Odds,
	})
	if err != nil {
		s.log.Warn("publish bet_placed failed", zap.String("bet_id", b.ID), zap.Error(err))
	}
}

func validate(req Request) error {
	switch {
	case req.UserID == "":
		return domain.Invalidf("userId is required")
	case req.EventID == "":
		return domain.Invalidf("eventId is required")
	case req.DriverID <= 0:
		return domain.Invalidf("driverId is required")
	case !req.Stake.IsPositive():
		return domain.Invalidf("stake must be > 0")
	case !req.Stake.Equal(req.Stake.Truncate(2)):
		return domain.Invalidf("stake must have at most two decimal places")
	}
	return nil
}
