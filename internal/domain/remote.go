package domain

import "context"

// BulkManifest describes a downloadable bulk catalog snapshot
type BulkManifest struct {
	DataType     string
	DownloadURI  string
	SizeBytes    int64
	VersionToken string
}

// SetPage is one page of a set search
type SetPage struct {
	Cards   []CardRecord
	HasMore bool
}

// CardSource defines the remote authoritative card catalog.
// Lookups that find nothing return ErrNotFound.
type CardSource interface {
	ListSets(ctx context.Context) ([]CardSet, error)
	SearchBySet(ctx context.Context, setCode string, page int) (*SetPage, error)
	FetchSetCards(ctx context.Context, setCode string) ([]CardRecord, error)

	GetByCollectorNumber(ctx context.Context, setCode, number string) (*CardRecord, error)
	GetByExactName(ctx context.Context, name, setCode string) (*CardRecord, error)
	GetByFuzzyName(ctx context.Context, name, setCode string) (*CardRecord, error)
	FreeTextSearch(ctx context.Context, query string) ([]CardRecord, error)

	BulkManifest(ctx context.Context, dataType string) (*BulkManifest, error)
	DownloadBulkDataset(ctx context.Context, uri string, batchSize int, fn func([]CardRecord) error) (int, error)
}
