package ports

import (
	"context"

	"github.com/kirillkom/vehicle-checker/internal/core/domain"
)

// PlateLookupService is the inbound contract for plate lookups.
type PlateLookupService interface {
	LookupImage(ctx context.Context, img domain.Image) (*domain.LookupOutcome, error)
	LookupRegistration(ctx context.Context, registration string) (*domain.LookupOutcome, error)
}

// HistoryReader exposes the lookup history to delivery adapters.
type HistoryReader interface {
	List(ctx context.Context) ([]domain.HistoryEntry, error)
	Clear(ctx context.Context) error
}

// CacheAdmin exposes user-initiated cache maintenance.
type CacheAdmin interface {
	Clear(ctx context.Context) (int, error)
	ClearExpired(ctx context.Context) (int, error)
	TTLDays() int
	SetTTLDays(ctx context.Context, days int) error
}
