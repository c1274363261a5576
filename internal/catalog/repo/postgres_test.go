package repo

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/radieske/race-bet-platform/internal/domain"
)

var eventCols = []string{"id", "name", "country", "event_year", "session_type", "start_time", "outcome_driver_id"}

func TestCommitOutcome(t *testing.T) {
	commitSQL := regexp.QuoteMeta(`UPDATE events SET outcome_driver_id = $2 WHERE id = $1 AND outcome_driver_id IS NULL`)

	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"first commit wins", 1, true},
		{"outcome already set", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, mock, err := sqlmock.New()
			if err != nil {
				t.Fatal(err)
			}
			defer conn.Close()
			mock.ExpectExec(commitSQL).WithArgs("9158", 1).WillReturnResult(sqlmock.NewResult(0, tt.affected))

			got, err := NewPostgres(conn).CommitOutcome(context.Background(), "9158", 1)
			if err != nil {
				t.Fatalf("CommitOutcome: %v", err)
			}
			if got != tt.want {
				t.Errorf("CommitOutcome = %v, want %v", got, tt.want)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestGetEvent(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	start := time.Date(2024, 3, 2, 15, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM events WHERE id = \$1 FOR SHARE`).WithArgs("9158").
		WillReturnRows(sqlmock.NewRows(eventCols).AddRow("9158", "Race - Sakhir", "Bahrain", 2024, "Race", start, 1))
	mock.ExpectQuery(`SELECT .+ FROM events WHERE id = \$1 FOR SHARE`).WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(eventCols))

	p := NewPostgres(conn)
	e, err := p.GetEvent(context.Background(), "9158")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if e.Year == nil || *e.Year != 2024 || e.OutcomeDriverID == nil || *e.OutcomeDriverID != 1 || !e.Settled() {
		t.Errorf("unexpected event %+v", e)
	}
	if e.StartTime == nil || !e.StartTime.Equal(start) {
		t.Errorf("StartTime = %v, want %v", e.StartTime, start)
	}

	if _, err := p.GetEvent(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestListEventsFilters(t *testing.T) {
	year := 2024

	tests := []struct {
		name   string
		filter domain.EventFilter
		query  string
		args   []driver.Value
	}{
		{
			name:   "no filters",
			filter: domain.EventFilter{},
			query:  `FROM events ORDER BY start_time NULLS LAST, id`,
		},
		{
			name:   "all filters",
			filter: domain.EventFilter{Year: &year, Country: "Bahrain", SessionType: "Race"},
			query:  `FROM events WHERE event_year = $1 AND LOWER(country) = LOWER($2) AND LOWER(session_type) = LOWER($3) ORDER BY`,
			args:   []driver.Value{2024, "Bahrain", "Race"},
		},
		{
			name:   "country only",
			filter: domain.EventFilter{Country: "Italy"},
			query:  `FROM events WHERE LOWER(country) = LOWER($1) ORDER BY`,
			args:   []driver.Value{"Italy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, mock, err := sqlmock.New()
			if err != nil {
				t.Fatal(err)
			}
			defer conn.Close()

			exp := mock.ExpectQuery(regexp.QuoteMeta(tt.query))
			if len(tt.args) > 0 {
				exp.WithArgs(tt.args...)
			}
			exp.WillReturnRows(sqlmock.NewRows(eventCols).
				AddRow("e1", "Race - Sakhir", "Bahrain", 2024, "Race", nil, nil))

			events, err := NewPostgres(conn).ListEvents(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("ListEvents: %v", err)
			}
			if len(events) != 1 || events[0].Settled() || events[0].StartTime != nil {
				t.Errorf("unexpected events %+v", events)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestBindEventDriversReadsBackCanonicalRows(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	insert := regexp.QuoteMeta(`INSERT INTO event_drivers`)
	mock.ExpectExec(insert).WithArgs("e1", 1, "Max Verstappen", 4).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(insert).WithArgs("e1", 16, "Charles Leclerc", 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM event_drivers WHERE event_id = ANY($1)`)).WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "driver_id", "full_name", "odds"}).
			AddRow("e1", 1, "Max Verstappen", 3).
			AddRow("e1", 16, "Charles Leclerc", 2))

	got, err := NewPostgres(conn).BindEventDrivers(context.Background(), "e1", []domain.EventDriver{
		{DriverID: 1, FullName: "Max Verstappen", Odds: 4},
		{DriverID: 16, FullName: "Charles Leclerc", Odds: 2},
	})
	if err != nil {
		t.Fatalf("BindEventDrivers: %v", err)
	}
	// driver 1 was already bound by another writer with odds 3
	if len(got) != 2 || got[0].Odds != 3 {
		t.Errorf("got %+v, want canonical odds 3 for driver 1", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetEventDriverNotFound(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	mock.ExpectQuery(`FROM event_drivers WHERE event_id`).WithArgs("e1", 99).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "driver_id", "full_name", "odds"}))

	if _, err := NewPostgres(conn).GetEventDriver(context.Background(), "e1", 99); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}
