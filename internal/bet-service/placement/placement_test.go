package placement

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/race-bet-platform/internal/domain"
	"github.com/radieske/race-bet-platform/internal/memstore"
	"github.com/radieske/race-bet-platform/pkg/contracts/events"
)

// storeCatalog resolves straight from the store, without a provider.
type storeCatalog struct{}

func (storeCatalog) ResolveEvent(ctx context.Context, st domain.CatalogStore, id string) (domain.Event, error) {
	return st.GetEvent(ctx, id)
}

func (storeCatalog) ResolveOrBindDriver(ctx context.Context, st domain.CatalogStore, eventID string, driverID int) (domain.EventDriver, error) {
	return st.GetEventDriver(ctx, eventID, driverID)
}

type recordingPublisher struct {
	mu    sync.Mutex
	seen  []events.BetPlaced
	fails bool
}

func (p *recordingPublisher) PublishBetPlaced(_ context.Context, e events.BetPlaced) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, e)
	if p.fails {
		return errors.New("broker unavailable")
	}
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func setup(t *testing.T) (*memstore.Store, *Service, *recordingPublisher) {
	t.Helper()
	store := memstore.New(dec("100.00"))
	store.SeedEvent(domain.Event{ID: "e1", Name: "Race - Sakhir"},
		domain.EventDriver{DriverID: 1, FullName: "Max Verstappen", Odds: 3},
		domain.EventDriver{DriverID: 16, FullName: "Charles Leclerc", Odds: 2})
	pub := &recordingPublisher{}
	return store, NewService(zap.NewNop(), store, storeCatalog{}, pub), pub
}

func TestPlaceBetFreshAccount(t *testing.T) {
	store, svc, pub := setup(t)

	res, err := svc.PlaceBet(context.Background(), Request{UserID: "u1", EventID: "e1", DriverID: 1, Stake: dec("10.00")})
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	if !res.Accepted || res.Odds != 3 || res.Status != domain.BetPending || res.BetID == "" {
		t.Fatalf("unexpected result %+v", res)
	}

	if bal := store.Accounts()["u1"].Balance; !bal.Equal(dec("90.00")) {
		t.Errorf("balance = %s, want 90.00", bal)
	}

	bets := store.Bets()
	if len(bets) != 1 || bets[0].ID != res.BetID || bets[0].Status != domain.BetPending || bets[0].Odds != 3 {
		t.Errorf("unexpected bets %+v", bets)
	}

	journal := store.Journal()
	if len(journal) != 2 || journal[0].Op != domain.OpGift || journal[1].Op != domain.OpDebit || journal[1].Reference != res.BetID {
		t.Errorf("unexpected journal %+v", journal)
	}

	if len(pub.seen) != 1 || pub.seen[0].BetID != res.BetID || pub.seen[0].Stake != "10.00" {
		t.Errorf("published %+v", pub.seen)
	}
}

func TestPlaceBetInsufficientBalance(t *testing.T) {
	store, svc, pub := setup(t)

	res, err := svc.PlaceBet(context.Background(), Request{UserID: "u1", EventID: "e1", DriverID: 16, Stake: dec("150")})
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	if res.Accepted || res.Reason != domain.ReasonInsufficientBalance || res.Odds != 2 || res.BetID != "" {
		t.Errorf("unexpected result %+v", res)
	}
	if bal := store.Accounts()["u1"].Balance; !bal.Equal(dec("100")) {
		t.Errorf("balance = %s, want 100", bal)
	}
	if n := len(store.Bets()); n != 0 {
		t.Errorf("%d bets stored, want none", n)
	}
	if len(pub.seen) != 0 {
		t.Errorf("rejected bet was published: %+v", pub.seen)
	}
}

func TestPlaceBetConcurrentSameAccount(t *testing.T) {
	store, svc, _ := setup(t)

	var (
		g       errgroup.Group
		results [2]Result
	)
	for i := range results {
		g.Go(func() error {
			r, err := svc.PlaceBet(context.Background(), Request{UserID: "u1", EventID: "e1", DriverID: 1, Stake: dec("60.00")})
			results[i] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}

	accepted, rejected := 0, 0
	for _, r := range results {
		switch {
		case r.Accepted:
			accepted++
		case r.Reason == domain.ReasonInsufficientBalance:
			rejected++
		}
	}
	if accepted != 1 || rejected != 1 {
		t.Errorf("accepted=%d rejected=%d, want 1/1", accepted, rejected)
	}
	if bal := store.Accounts()["u1"].Balance; !bal.Equal(dec("40.00")) {
		t.Errorf("balance = %s, want 40.00", bal)
	}
}

func TestPlaceBetNeverOverdraws(t *testing.T) {
	store, svc, _ := setup(t)

	const attempts = 20
	var (
		g        errgroup.Group
		mu       sync.Mutex
		accepted int
	)
	for range attempts {
		g.Go(func() error {
			r, err := svc.PlaceBet(context.Background(), Request{UserID: "u1", EventID: "e1", DriverID: 16, Stake: dec("7.00")})
			if r.Accepted {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if accepted != 14 {
		t.Errorf("accepted = %d, want 14", accepted)
	}
	bal := store.Accounts()["u1"].Balance
	if bal.IsNegative() || !bal.Equal(dec("2.00")) {
		t.Errorf("balance = %s, want 2.00", bal)
	}
	if n := len(store.Bets()); n != accepted {
		t.Errorf("%d bets stored, want %d", n, accepted)
	}
}

func TestPlaceBetErrors(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"zero stake", Request{UserID: "u1", EventID: "e1", DriverID: 1, Stake: decimal.Zero}, domain.ErrInvalidArgument},
		{"negative stake", Request{UserID: "u1", EventID: "e1", DriverID: 1, Stake: dec("-5")}, domain.ErrInvalidArgument},
		{"sub-cent stake", Request{UserID: "u1", EventID: "e1", DriverID: 1, Stake: dec("1.005")}, domain.ErrInvalidArgument},
		{"blank user", Request{UserID: "  ", EventID: "e1", DriverID: 1, Stake: dec("1")}, domain.ErrInvalidArgument},
		{"blank event", Request{UserID: "u1", DriverID: 1, Stake: dec("1")}, domain.ErrInvalidArgument},
		{"missing driver id", Request{UserID: "u1", EventID: "e1", Stake: dec("1")}, domain.ErrInvalidArgument},
		{"unknown event", Request{UserID: "u1", EventID: "nope", DriverID: 1, Stake: dec("1")}, domain.ErrNotFound},
		{"unbound driver", Request{UserID: "u1", EventID: "e1", DriverID: 99, Stake: dec("1")}, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, svc, _ := setup(t)

			_, err := svc.PlaceBet(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if n := len(store.Accounts()); n != 0 {
				t.Errorf("%d accounts created, want none", n)
			}
		})
	}
}

func TestPlaceBetOnSettledEvent(t *testing.T) {
	store, svc, _ := setup(t)
	winner := 1
	store.SeedEvent(domain.Event{ID: "done", Name: "Race", OutcomeDriverID: &winner},
		domain.EventDriver{DriverID: 1, FullName: "Max Verstappen", Odds: 3})

	_, err := svc.PlaceBet(context.Background(), Request{UserID: "u1", EventID: "done", DriverID: 1, Stake: dec("5")})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if len(store.Accounts()) != 0 || len(store.Bets()) != 0 {
		t.Error("rejected placement left state behind")
	}
}

func TestPlaceBetPublishFailureKeepsBet(t *testing.T) {
	store, svc, pub := setup(t)
	pub.fails = true

	res, err := svc.PlaceBet(context.Background(), Request{UserID: "u1", EventID: "e1", DriverID: 1, Stake: dec("1")})
	if err != nil || !res.Accepted {
		t.Fatalf("PlaceBet = %+v, %v", res, err)
	}
	if len(store.Bets()) != 1 {
		t.Error("bet missing after publish failure")
	}
}

// failingBets rejects every insert, after the debit has already run.
type failingBets struct {
	domain.BetStore
	err error
}

func (b failingBets) Insert(context.Context, domain.Bet) error { return b.err }

type failingInsertUnitOfWork struct {
	inner *memstore.Store
	err   error
}

func (u failingInsertUnitOfWork) Do(ctx context.Context, fn func(context.Context, domain.Stores) error) error {
	return u.inner.Do(ctx, func(ctx context.Context, st domain.Stores) error {
		st.Bets = failingBets{BetStore: st.Bets, err: u.err}
		return fn(ctx, st)
	})
}

func TestPlaceBetInsertFailureRollsBackDebit(t *testing.T) {
	store, _, pub := setup(t)
	diskFull := errors.New("disk full")
	svc := NewService(zap.NewNop(), failingInsertUnitOfWork{inner: store, err: diskFull}, storeCatalog{}, pub)

	_, err := svc.PlaceBet(context.Background(), Request{UserID: "u1", EventID: "e1", DriverID: 1, Stake: dec("10.00")})
	if !errors.Is(err, diskFull) {
		t.Fatalf("err = %v, want %v", err, diskFull)
	}

	if accounts := store.Accounts(); len(accounts) != 0 {
		t.Errorf("accounts = %v, want none", accounts)
	}
	if journal := store.Journal(); len(journal) != 0 {
		t.Errorf("journal = %+v, want empty", journal)
	}
	if bets := store.Bets(); len(bets) != 0 {
		t.Errorf("bets = %+v, want none", bets)
	}
	if len(pub.seen) != 0 {
		t.Errorf("published %+v for a failed placement", pub.seen)
	}
}
