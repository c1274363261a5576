package txn

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"github.com/radieske/race-bet-platform/internal/domain"
)

func TestDoRollsBackOnConflict(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE events SET outcome_driver_id`)).WithArgs("e1", 1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	uow := NewPostgres(conn, decimal.NewFromInt(100), time.Second)
	err = uow.Do(context.Background(), func(ctx context.Context, s domain.Stores) error {
		ok, err := s.Catalog.CommitOutcome(ctx, "e1", 1)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflictf("outcome already set")
		}
		return nil
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("err = %v, want conflict", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDoCommits(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT balance FROM accounts WHERE id = $1`)).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("12.00"))
	mock.ExpectCommit()

	var bal decimal.Decimal
	err = NewPostgres(conn, decimal.NewFromInt(100), time.Second).Do(context.Background(), func(ctx context.Context, s domain.Stores) error {
		var err error
		bal, err = s.Ledger.Balance(ctx, "u1")
		return err
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if bal.StringFixed(2) != "12.00" {
		t.Errorf("balance = %s", bal)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
