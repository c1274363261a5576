package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/radieske/race-bet-platform/internal/domain"
	"github.com/radieske/race-bet-platform/internal/shared/db"
)

const betColumns = `id, user_id, event_id, driver_id, stake, odds, status, placed_at, settled_at`

// Postgres persists bets.
type Postgres struct{ q db.Querier }

func NewPostgres(q db.Querier) *Postgres { return &Postgres{q: q} }

// Insert stores a new bet; the id comes from the caller.
func (p *Postgres) Insert(ctx context.Context, b domain.Bet) error {
	_, err := p.q.ExecContext(ctx, `
		INSERT INTO bets (id, user_id, event_id, driver_id, stake, odds, status, placed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.UserID, b.EventID, b.DriverID, b.Stake, b.Odds, string(b.Status), b.PlacedAt)
	if db.IsUniqueViolation(err) {
		return domain.Conflictf("bet %s already exists", b.ID)
	}
	if err != nil {
		return fmt.Errorf("insert bet: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, betID string) (domain.Bet, error) {
	// bets.id is a UUID column; anything else can never match
	if _, err := uuid.Parse(betID); err != nil {
		return domain.Bet{}, domain.NotFoundf("bet %s", betID)
	}
	b, err := scanBet(p.q.QueryRowContext(ctx, `SELECT `+betColumns+` FROM bets WHERE id = $1`, betID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bet{}, domain.NotFoundf("bet %s", betID)
	}
	if err != nil {
		return domain.Bet{}, fmt.Errorf("read bet: %w", err)
	}
	return b, nil
}

// ListByEventAndStatus orders by user then id so concurrent settlements touch
// accounts in the same order.
func (p *Postgres) ListByEventAndStatus(ctx context.Context, eventID string, status domain.BetStatus) ([]domain.Bet, error) {
	rows, err := p.q.QueryContext(ctx,
		`SELECT `+betColumns+` FROM bets WHERE event_id = $1 AND status = $2 ORDER BY user_id, id`,
		eventID, string(status))
	if err != nil {
		return nil, fmt.Errorf("list bets: %w", err)
	}
	defer rows.Close()

	var out []domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Resolve only touches PENDING bets; anything else means the batch is corrupt.
func (p *Postgres) Resolve(ctx context.Context, b domain.Bet) error {
	res, err := p.q.ExecContext(ctx,
		`UPDATE bets SET status = $2, settled_at = $3 WHERE id = $1 AND status = 'PENDING'`,
		b.ID, string(b.Status), b.SettledAt)
	if err != nil {
		return fmt.Errorf("resolve bet: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return domain.Integrityf("bet %s is not pending", b.ID)
	}
	return nil
}

type scanner interface{ Scan(dest ...any) error }

func scanBet(s scanner) (domain.Bet, error) {
	var (
		b       domain.Bet
		status  string
		settled sql.NullTime
	)
	if err := s.Scan(&b.ID, &b.UserID, &b.EventID, &b.DriverID, &b.Stake, &b.Odds, &status, &b.PlacedAt, &settled); err != nil {
		return domain.Bet{}, err
	}
	b.Status = domain.BetStatus(status)
	if settled.Valid {
		t := settled.Time
		b.SettledAt = &t
	}
	return b, nil
}
