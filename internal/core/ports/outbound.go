package ports

import (
	"context"

	"github.com/kirillkom/vehicle-checker/internal/core/domain"
)

// KeyValueStore is the persistence contract shared by the result cache and
// the lookup history. Get reports found=false for a missing key.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	ListKeys(ctx context.Context) ([]string, error)
}

// ImagePreprocessor prepares a captured image for recognition. It never fails;
// at worst it hands back the input unchanged.
type ImagePreprocessor interface {
	Prepare(ctx context.Context, img domain.Image) domain.Image
}

// TextRecognizer turns an image into raw text and a 0..100 confidence.
type TextRecognizer interface {
	Recognize(ctx context.Context, img domain.Image) (domain.RecognizedText, error)
}

// VehicleLookup fetches the current record for a canonical registration.
// Failures are *domain.Error values of kind remote, network or configuration.
type VehicleLookup interface {
	Lookup(ctx context.Context, plate domain.Plate) (domain.VehicleRecord, error)
}

// ConfigChecker is implemented by collaborators that need credentials or an
// endpoint. CheckConfigured returns a configuration error when they are absent.
type ConfigChecker interface {
	CheckConfigured() error
}
