package httpadapter

import (
	"context"
	"net/http"
	"time"

	"github.com/kirillkom/vehicle-checker/internal/config"
	"github.com/kirillkom/vehicle-checker/internal/core/domain"
)

type lookupFake struct {
	outcome *domain.LookupOutcome
	err     error

	gotRegistration string
	gotImage        domain.Image
	block           chan struct{}
	started         chan struct{}
}

func (f *lookupFake) LookupImage(_ context.Context, img domain.Image) (*domain.LookupOutcome, error) {
	f.gotImage = img
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	return f.outcome, f.err
}

func (f *lookupFake) LookupRegistration(_ context.Context, registration string) (*domain.LookupOutcome, error) {
	f.gotRegistration = registration
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	return f.outcome, f.err
}

type historyFake struct {
	entries []domain.HistoryEntry
	err     error
	cleared bool
}

func (f *historyFake) List(context.Context) ([]domain.HistoryEntry, error) {
	return f.entries, f.err
}

func (f *historyFake) Clear(context.Context) error {
	f.cleared = true
	return f.err
}

type cacheFake struct {
	ttl          int
	removed      int
	expired      int
	setErr       error
	clearCalls   int
	expiredCalls int
}

func (f *cacheFake) Clear(context.Context) (int, error) {
	f.clearCalls++
	return f.removed, nil
}

func (f *cacheFake) ClearExpired(context.Context) (int, error) {
	f.expiredCalls++
	return f.expired, nil
}

func (f *cacheFake) TTLDays() int { return f.ttl }

func (f *cacheFake) SetTTLDays(_ context.Context, days int) error {
	if f.setErr != nil {
		return f.setErr
	}
	if days < 1 || days > 30 {
		return domain.NewError(domain.KindValidation, "Cache expiry must be between 1 and 30 days.", nil)
	}
	f.ttl = days
	return nil
}

type checkerFake struct{ err error }

func (c checkerFake) CheckConfigured() error { return c.err }

func testConfig() config.Config {
	return config.Config{LookupMaxInFlight: 1}
}

func sampleOutcome(source domain.LookupSource) *domain.LookupOutcome {
	return &domain.LookupOutcome{
		Plate: "AB12CDE",
		Vehicle: domain.VehicleRecord{
			RegistrationNumber: "AB12CDE",
			TaxStatus:          domain.TaxStatusTaxed,
			MOTStatus:          "Valid",
			Make:               "FORD",
			Colour:             "BLUE",
			FuelType:           "PETROL",
			YearOfManufacture:  2012,
		},
		Source: source,
	}
}

type routerDeps struct {
	lookups *lookupFake
	history *historyFake
	cache   *cacheFake
}

func newTestHandler(cfg config.Config, deps routerDeps, opts ...RouterOption) http.Handler {
	if deps.lookups == nil {
		deps.lookups = &lookupFake{outcome: sampleOutcome(domain.SourceRemote)}
	}
	if deps.history == nil {
		deps.history = &historyFake{}
	}
	if deps.cache == nil {
		deps.cache = &cacheFake{ttl: 7}
	}
	opts = append([]RouterOption{WithClock(func() time.Time {
		return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	})}, opts...)
	rt, err := NewRouter(cfg, deps.lookups, deps.history, deps.cache, opts...)
	if err != nil {
		panic(err)
	}
	return rt.Handler()
}
