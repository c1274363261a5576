package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/radieske/race-bet-platform/internal/domain"
	"github.com/radieske/race-bet-platform/internal/shared/db"
)

const eventColumns = `id, name, country, event_year, session_type, start_time, outcome_driver_id`

// Postgres stores events and the drivers bound to them.
type Postgres struct{ q db.Querier }

func NewPostgres(q db.Querier) *Postgres { return &Postgres{q: q} }

// GetEvent reads the event FOR SHARE: a concurrent outcome commit waits for
// the surrounding transaction.
func (p *Postgres) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	row := p.q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR SHARE`, eventID)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Event{}, domain.NotFoundf("event %s", eventID)
	}
	if err != nil {
		return domain.Event{}, fmt.Errorf("read event: %w", err)
	}
	return e, nil
}

// ListEvents ANDs together only the filters that are present.
func (p *Postgres) ListEvents(ctx context.Context, f domain.EventFilter) ([]domain.Event, error) {
	var (
		conds []string
		args  []any
	)
	if f.Year != nil {
		args = append(args, *f.Year)
		conds = append(conds, fmt.Sprintf("event_year = $%d", len(args)))
	}
	if f.Country != "" {
		args = append(args, f.Country)
		conds = append(conds, fmt.Sprintf("LOWER(country) = LOWER($%d)", len(args)))
	}
	if f.SessionType != "" {
		args = append(args, f.SessionType)
		conds = append(conds, fmt.Sprintf("LOWER(session_type) = LOWER($%d)", len(args)))
	}

	q := `SELECT ` + eventColumns + ` FROM events`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY start_time NULLS LAST, id`

	rows, err := p.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *Postgres) InsertEventIfAbsent(ctx context.Context, e domain.Event) (bool, error) {
	res, err := p.q.ExecContext(ctx, `
		INSERT INTO events (id, name, country, event_year, session_type, start_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, e.Name, nullString(e.Country), nullInt(e.Year), nullString(e.SessionType), e.StartTime)
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (p *Postgres) GetEventDriver(ctx context.Context, eventID string, driverID int) (domain.EventDriver, error) {
	var d domain.EventDriver
	err := p.q.QueryRowContext(ctx,
		`SELECT event_id, driver_id, full_name, odds FROM event_drivers WHERE event_id = $1 AND driver_id = $2`,
		eventID, driverID).Scan(&d.EventID, &d.DriverID, &d.FullName, &d.Odds)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.EventDriver{}, domain.NotFoundf("driver %d for event %s", driverID, eventID)
	}
	if err != nil {
		return domain.EventDriver{}, fmt.Errorf("read event driver: %w", err)
	}
	return d, nil
}

func (p *Postgres) ListEventDrivers(ctx context.Context, eventIDs ...string) ([]domain.EventDriver, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	rows, err := p.q.QueryContext(ctx,
		`SELECT event_id, driver_id, full_name, odds FROM event_drivers WHERE event_id = ANY($1) ORDER BY event_id, driver_id`,
		pq.Array(eventIDs))
	if err != nil {
		return nil, fmt.Errorf("list event drivers: %w", err)
	}
	defer rows.Close()

	var out []domain.EventDriver
	for rows.Next() {
		var d domain.EventDriver
		if err := rows.Scan(&d.EventID, &d.DriverID, &d.FullName, &d.Odds); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// BindEventDrivers keeps the first writer's odds: conflicting rows are left
// untouched and the canonical set is read back.
func (p *Postgres) BindEventDrivers(ctx context.Context, eventID string, drivers []domain.EventDriver) ([]domain.EventDriver, error) {
	for _, d := range drivers {
		if _, err := p.q.ExecContext(ctx, `
			INSERT INTO event_drivers (event_id, driver_id, full_name, odds)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (event_id, driver_id) DO NOTHING`,
			eventID, d.DriverID, d.FullName, d.Odds); err != nil {
			return nil, fmt.Errorf("bind driver %d: %w", d.DriverID, err)
		}
	}
	return p.ListEventDrivers(ctx, eventID)
}

// CommitOutcome is the compare-and-set at the heart of exactly-once settlement.
func (p *Postgres) CommitOutcome(ctx context.Context, eventID string, winnerDriverID int) (bool, error) {
	res, err := p.q.ExecContext(ctx,
		`UPDATE events SET outcome_driver_id = $2 WHERE id = $1 AND outcome_driver_id IS NULL`,
		eventID, winnerDriverID)
	if err != nil {
		return false, fmt.Errorf("commit outcome: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

type scanner interface{ Scan(dest ...any) error }

func scanEvent(s scanner) (domain.Event, error) {
	var (
		e                domain.Event
		country, session sql.NullString
		year, outcome    sql.NullInt64
		start            sql.NullTime
	)
	if err := s.Scan(&e.ID, &e.Name, &country, &year, &session, &start, &outcome); err != nil {
		return domain.Event{}, err
	}
	e.Country = country.String
	e.SessionType = session.String
	if year.Valid {
		y := int(year.Int64)
		e.Year = &y
	}
	if start.Valid {
		t := start.Time
		e.StartTime = &t
	}
	if outcome.Valid {
		o := int(outcome.Int64)
		e.OutcomeDriverID = &o
	}
	return e, nil
}

func nullString(s string) sql.NullString { return sql.NullString{String: s, Valid: s != ""} }

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
