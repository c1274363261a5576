package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/race-bet-platform/internal/catalog/cache"
	"github.com/radieske/race-bet-platform/internal/catalog/dto"
	"github.com/radieske/race-bet-platform/internal/catalog/provider"
	"github.com/radieske/race-bet-platform/internal/domain"
	"github.com/radieske/race-bet-platform/pkg/contracts/events"
)

// ListingCache is the Redis listing cache; nil disables caching.
type ListingCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// Catalog resolves events and driver odds, pulling from the sessions
// provider the first time an event or its drivers are seen.
type Catalog struct {
	log       *zap.Logger
	uow       domain.UnitOfWork
	providers *provider.Registry
	cache     ListingCache
	cacheTTL  time.Duration
	pickOdds  func() int
}

func New(log *zap.Logger, uow domain.UnitOfWork, providers *provider.Registry, c ListingCache, ttl time.Duration) *Catalog {
	return &Catalog{log: log, uow: uow, providers: providers, cache: c, cacheTTL: ttl, pickOdds: PickOdds}
}

// ResolveEvent returns the event or a NotFound error.
func (c *Catalog) ResolveEvent(ctx context.Context, store domain.CatalogStore, eventID string) (domain.Event, error) {
	return store.GetEvent(ctx, eventID)
}

// ResolveOrBindDriver returns the bound odds for (event, driver). When the
// event has no drivers yet they are fetched from the default provider and
// bound first-writer-wins.
func (c *Catalog) ResolveOrBindDriver(ctx context.Context, store domain.CatalogStore, eventID string, driverID int) (domain.EventDriver, error) {
	d, err := store.GetEventDriver(ctx, eventID, driverID)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.EventDriver{}, err
	}

	bound, err := store.ListEventDrivers(ctx, eventID)
	if err != nil {
		return domain.EventDriver{}, err
	}
	if len(bound) > 0 {
		return domain.EventDriver{}, domain.Invalidf("driver %d not found for event %s. Available drivers: %s",
			driverID, eventID, driverIDs(bound))
	}

	p, err := c.providers.Get("")
	if err != nil {
		return domain.EventDriver{}, err
	}
	fetched := p.FetchDrivers(ctx, eventID)
	if err := ctx.Err(); err != nil {
		// the provider swallows its errors; a deadline here is not an empty grid
		return domain.EventDriver{}, fmt.Errorf("fetch drivers for event %s: %w", eventID, err)
	}
	if len(fetched) == 0 {
		return domain.EventDriver{}, domain.NotFoundf("no drivers returned by provider for event %s", eventID)
	}

	saved, err := store.BindEventDrivers(ctx, eventID, c.withOdds(eventID, fetched))
	if err != nil {
		return domain.EventDriver{}, err
	}
	for _, s := range saved {
		if s.DriverID == driverID {
			return s, nil
		}
	}
	return domain.EventDriver{}, domain.Invalidf("driver %d not found for event %s. Available drivers: %s",
		driverID, eventID, driverIDs(saved))
}

// ListEvents serves from cache, then the database, then the provider. Events
// and drivers learned from the provider are stored before being returned.
func (c *Catalog) ListEvents(ctx context.Context, f domain.EventFilter, providerName string) ([]dto.EventListing, error) {
	p, err := c.providers.Get(providerName)
	if err != nil {
		return nil, err
	}

	key := cache.ListingKey(p.Name(), f)
	if c.cache != nil {
		var cached []dto.EventListing
		if ok, err := c.cache.Get(ctx, key, &cached); err != nil {
			c.log.Warn("listing cache read failed", zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	var out []dto.EventListing
	err = c.uow.Do(ctx, func(ctx context.Context, st domain.Stores) error {
		evs, err := st.Catalog.ListEvents(ctx, f)
		if err != nil || len(evs) == 0 {
			return err
		}
		out, err = listings(ctx, st.Catalog, evs)
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(out) == 0 {
		if out, err = c.importFromProvider(ctx, p, f); err != nil {
			return nil, err
		}
	}

	// an event without drivers gets them bound on first placement, which
	// would leave a cached copy stale
	if c.cache != nil && len(out) > 0 && allHaveDrivers(out) {
		if err := c.cache.Set(ctx, key, out, c.cacheTTL); err != nil {
			c.log.Warn("listing cache write failed", zap.Error(err))
		}
	}
	return out, nil
}

// NotifyEventSettled drops cached listings so the outcome shows up.
func (c *Catalog) NotifyEventSettled(ctx context.Context, _ events.EventSettled) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Invalidate(ctx)
}

// importFromProvider fetches outside any transaction, then stores the result
// in one unit of work.
func (c *Catalog) importFromProvider(ctx context.Context, p provider.Provider, f domain.EventFilter) ([]dto.EventListing, error) {
	sessions := p.FetchSessions(ctx, f)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil, nil
	}

	type fetched struct {
		event   domain.Event
		drivers []domain.EventDriver
	}
	batch := make([]fetched, 0, len(sessions))
	for _, s := range sessions {
		batch = append(batch, fetched{
			event: domain.Event{
				ID:          s.Key,
				Name:        s.Name,
				Country:     s.Country,
				Year:        s.Year,
				SessionType: s.SessionType,
				StartTime:   s.StartTime,
			},
			drivers: c.withOdds(s.Key, p.FetchDrivers(ctx, s.Key)),
		})
	}

	var out []dto.EventListing
	err := c.uow.Do(ctx, func(ctx context.Context, st domain.Stores) error {
		out = out[:0]
		for _, b := range batch {
			if _, err := st.Catalog.InsertEventIfAbsent(ctx, b.event); err != nil {
				return err
			}
			// the stored row may predate this fetch
			ev, err := st.Catalog.GetEvent(ctx, b.event.ID)
			if err != nil {
				return err
			}
			var drivers []domain.EventDriver
			if len(b.drivers) > 0 {
				drivers, err = st.Catalog.BindEventDrivers(ctx, ev.ID, b.drivers)
			} else {
				drivers, err = st.Catalog.ListEventDrivers(ctx, ev.ID)
			}
			if err != nil {
				return err
			}
			out = append(out, toListing(ev, drivers))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("imported events from provider", zap.String("provider", p.Name()), zap.Int("events", len(out)))
	return out, nil
}

func (c *Catalog) withOdds(eventID string, ds []provider.Driver) []domain.EventDriver {
	out := make([]domain.EventDriver, 0, len(ds))
	for _, d := range ds {
		out = append(out, domain.EventDriver{EventID: eventID, DriverID: d.Number, FullName: d.FullName, Odds: c.pickOdds()})
	}
	return out
}

func listings(ctx context.Context, store domain.CatalogStore, evs []domain.Event) ([]dto.EventListing, error) {
	ids := make([]string, 0, len(evs))
	for _, e := range evs {
		ids = append(ids, e.ID)
	}
	drivers, err := store.ListEventDrivers(ctx, ids...)
	if err != nil {
		return nil, err
	}
	byEvent := make(map[string][]domain.EventDriver, len(evs))
	for _, d := range drivers {
		byEvent[d.EventID] = append(byEvent[d.EventID], d)
	}

	out := make([]dto.EventListing, 0, len(evs))
	for _, e := range evs {
		out = append(out, toListing(e, byEvent[e.ID]))
	}
	return out, nil
}

func toListing(e domain.Event, drivers []domain.EventDriver) dto.EventListing {
	l := dto.EventListing{
		EventID:         e.ID,
		Name:            e.Name,
		Country:         e.Country,
		Year:            e.Year,
		SessionType:     e.SessionType,
		StartTime:       e.StartTime,
		OutcomeDriverID: e.OutcomeDriverID,
		Drivers:         make([]dto.Driver, 0, len(drivers)),
	}
	for _, d := range drivers {
		l.Drivers = append(l.Drivers, dto.Driver{DriverID: d.DriverID, FullName: d.FullName, Odds: d.Odds})
	}
	return l
}

func driverIDs(ds []domain.EventDriver) string {
	ids := make([]string, 0, len(ds))
	for _, d := range ds {
		ids = append(ids, strconv.Itoa(d.DriverID))
	}
	return strings.Join(ids, ", ")
}

func allHaveDrivers(ls []dto.EventListing) bool {
	for _, l := range ls {
		if len(l.Drivers) == 0 {
			return false
		}
	}
	return true
}
