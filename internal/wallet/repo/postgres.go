package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/radieske/race-bet-platform/internal/domain"
	"github.com/radieske/race-bet-platform/internal/shared/db"
)

// Postgres implements the account ledger. It runs on whatever Querier it is
// given, normally the transaction of the current unit of work.
type Postgres struct {
	q    db.Querier
	gift decimal.Decimal
}

// NewPostgres binds the ledger to q; new accounts start with gift.
func NewPostgres(q db.Querier, gift decimal.Decimal) *Postgres {
	return &Postgres{q: q, gift: gift}
}

// EnsureAccount creates the account with the gift balance unless it exists,
// then returns the stored row. A concurrent creator simply wins the race.
func (p *Postgres) EnsureAccount(ctx context.Context, accountID string) (domain.Account, error) {
	if accountID == "" {
		return domain.Account{}, domain.Invalidf("account id is required")
	}

	res, err := p.q.ExecContext(ctx,
		`INSERT INTO accounts (id, balance) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		accountID, p.gift)
	if err != nil {
		return domain.Account{}, fmt.Errorf("insert account: %w", err)
	}
	created, err := res.RowsAffected()
	if err != nil {
		return domain.Account{}, err
	}
	if created == 1 && p.gift.IsPositive() {
		if err := p.journal(ctx, accountID, domain.OpGift, p.gift, p.gift, ""); err != nil {
			return domain.Account{}, err
		}
	}

	var a domain.Account
	err = p.q.QueryRowContext(ctx,
		`SELECT id, balance, created_at FROM accounts WHERE id = $1`, accountID).
		Scan(&a.ID, &a.Balance, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, domain.Integrityf("account %s vanished after ensure", accountID)
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("read account: %w", err)
	}
	return a, nil
}

// DebitIfSufficient withdraws amount in one conditional statement. No row
// means the balance was short (or the account does not exist).
func (p *Postgres) DebitIfSufficient(ctx context.Context, accountID string, amount decimal.Decimal, ref string) (bool, error) {
	if !amount.IsPositive() {
		return false, domain.Invalidf("debit amount must be > 0")
	}

	var after decimal.Decimal
	err := p.q.QueryRowContext(ctx,
		`UPDATE accounts SET balance = balance - $2 WHERE id = $1 AND balance >= $2 RETURNING balance`,
		accountID, amount).Scan(&after)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("debit account: %w", err)
	}

	if err := p.journal(ctx, accountID, domain.OpDebit, amount, after, ref); err != nil {
		return false, err
	}
	return true, nil
}

// Credit adds amount to an existing account.
func (p *Postgres) Credit(ctx context.Context, accountID string, amount decimal.Decimal, ref string) error {
	if !amount.IsPositive() {
		return domain.Invalidf("credit amount must be > 0")
	}

	var after decimal.Decimal
	err := p.q.QueryRowContext(ctx,
		`UPDATE accounts SET balance = balance + $2 WHERE id = $1 RETURNING balance`,
		accountID, amount).Scan(&after)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundf("account %s", accountID)
	}
	if err != nil {
		return fmt.Errorf("credit account: %w", err)
	}

	return p.journal(ctx, accountID, domain.OpCredit, amount, after, ref)
}

func (p *Postgres) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var bal decimal.Decimal
	err := p.q.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, domain.NotFoundf("account %s", accountID)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("read balance: %w", err)
	}
	return bal, nil
}

// journal appends to wallet_ledger in the same transaction as the mutation.
func (p *Postgres) journal(ctx context.Context, accountID, op string, amount, after decimal.Decimal, ref string) error {
	var reference sql.NullString
	if ref != "" {
		reference = sql.NullString{String: ref, Valid: true}
	}
	if _, err := p.q.ExecContext(ctx,
		`INSERT INTO wallet_ledger (account_id, operation_type, amount, balance_after, reference) VALUES ($1, $2, $3, $4, $5)`,
		accountID, op, amount, after, reference); err != nil {
		return fmt.Errorf("journal %s: %w", op, err)
	}
	return nil
}
