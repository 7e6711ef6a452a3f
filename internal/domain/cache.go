package domain

import (
	"context"
	"time"
)

// DefaultDataType is the bulk catalog the local cache mirrors
const DefaultDataType = "default_cards"

// DefaultCacheTTL is how long a bulk snapshot is considered fresh
const DefaultCacheTTL = 7 * 24 * time.Hour

// FuzzyLimit caps the number of fuzzy lookup results
const FuzzyLimit = 10

// CardCache defines the interface for the local card catalog
type CardCache interface {
	// Freshness
	IsValid(ctx context.Context, dataType string, ttl time.Duration) (bool, error)
	Metadata(ctx context.Context, dataType string) (*CacheMetadata, error)

	// Point and fuzzy lookups
	LookupExact(ctx context.Context, name, setCode, collectorNumber string) (*CardRecord, error)
	LookupFuzzy(ctx context.Context, name, setIdentifier string) ([]CardRecord, error)
	ListSetCards(ctx context.Context, setCode string) ([]CardRecord, error)

	// Writes
	UpsertBatch(ctx context.Context, cards []CardRecord) (int, error)
	ReplaceAll(ctx context.Context, meta CacheMetadata, load func(stage func([]CardRecord) error) error) (int, error)

	// Statistics
	Stats(ctx context.Context, dataType string, ttl time.Duration) (*CacheStats, error)
	SetCompletion(ctx context.Context, setCode string) (*SetCompletion, error)
}
