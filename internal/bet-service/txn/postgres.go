package txn

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	betrepo "github.com/radieske/race-bet-platform/internal/bet-service/repo"
	catalogrepo "github.com/radieske/race-bet-platform/internal/catalog/repo"
	"github.com/radieske/race-bet-platform/internal/domain"
	"github.com/radieske/race-bet-platform/internal/shared/db"
	walletrepo "github.com/radieske/race-bet-platform/internal/wallet/repo"
)

// Postgres runs each unit of work in one database transaction with the
// ledger, catalog and bet stores bound to it.
type Postgres struct {
	db      *sql.DB
	gift    decimal.Decimal
	timeout time.Duration
}

func NewPostgres(conn *sql.DB, gift decimal.Decimal, timeout time.Duration) *Postgres {
	return &Postgres{db: conn, gift: gift, timeout: timeout}
}

func (p *Postgres) Do(ctx context.Context, fn func(ctx context.Context, s domain.Stores) error) error {
	return db.WithTx(ctx, p.db, p.timeout, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, domain.Stores{
			Ledger:  walletrepo.NewPostgres(tx, p.gift),
			Catalog: catalogrepo.NewPostgres(tx),
			Bets:    betrepo.NewPostgres(tx),
		})
	})
}
