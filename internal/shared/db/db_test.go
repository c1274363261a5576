package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

func TestWithTx(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		fnErr   error
		expect  func(m sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name:  "commit on success",
			fnErr: nil,
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectExec("UPDATE accounts").WillReturnResult(sqlmock.NewResult(0, 1))
				m.ExpectCommit()
			},
		},
		{
			name:  "rollback on error",
			fnErr: boom,
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectExec("UPDATE accounts").WillReturnResult(sqlmock.NewResult(0, 1))
				m.ExpectRollback()
			},
			wantErr: boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, mock, err := sqlmock.New()
			if err != nil {
				t.Fatal(err)
			}
			defer conn.Close()
			tt.expect(mock)

			var hadDeadline bool
			err = WithTx(context.Background(), conn, time.Second, func(ctx context.Context, tx *sql.Tx) error {
				_, hadDeadline = ctx.Deadline()
				if _, err := tx.ExecContext(ctx, "UPDATE accounts SET balance = 1"); err != nil {
					return err
				}
				return tt.fnErr
			})

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("WithTx() error = %v, want %v", err, tt.wantErr)
			}
			if !hadDeadline {
				t.Error("expected a deadline inside the transaction")
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(&pq.Error{Code: "23505"}) {
		t.Error("23505 should be a unique violation")
	}
	if IsUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Error("23503 is not a unique violation")
	}
	if IsUniqueViolation(errors.New("plain")) {
		t.Error("plain error is not a unique violation")
	}
}
