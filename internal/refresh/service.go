package refresh

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/cardvault/internal/domain"
	"golang.org/x/sync/singleflight"
)

// batchSize is the number of cards staged per write transaction
const batchSize = 1000

// BulkSource provides full catalog snapshots
type BulkSource interface {
	BulkManifest(ctx context.Context, dataType string) (*domain.BulkManifest, error)
	DownloadBulkDataset(ctx context.Context, uri string, batchSize int, fn func([]domain.CardRecord) error) (int, error)
}

type Service interface {
	// EnsureFresh refreshes the catalog only when it is stale. Returns nil
	// stats when nothing had to be done.
	EnsureFresh(ctx context.Context) (*domain.RefreshStats, error)
	// Refresh reloads the catalog; without force a fresh catalog is left alone
	Refresh(ctx context.Context, force bool) (*domain.RefreshStats, error)
	// RefreshInBackground starts Refresh on its own goroutine
	RefreshInBackground(force bool)
	Running() bool
}

type service struct {
	log      zerolog.Logger
	cache    domain.CardCache
	source   BulkSource
	notifier domain.NotificationService
	dataType string
	ttl      time.Duration
	lockPath string

	group   singleflight.Group
	running atomic.Bool
	now     func() time.Time
}

func NewService(log zerolog.Logger, config *domain.Config, cache domain.CardCache, source BulkSource, notifier domain.NotificationService) Service {
	dataType := config.BulkDataType
	if dataType == "" {
		dataType = domain.DefaultDataType
	}
	ttl := config.CacheTTL
	if ttl <= 0 {
		ttl = domain.DefaultCacheTTL
	}

	return &service{
		log:      log.With().Str("module", "refresh").Logger(),
		cache:    cache,
		source:   source,
		notifier: notifier,
		dataType: dataType,
		ttl:      ttl,
		lockPath: config.DBPath + ".refresh.lock",
		now:      time.Now,
	}
}

func (s *service) EnsureFresh(ctx context.Context) (*domain.RefreshStats, error) {
	return s.Refresh(ctx, false)
}

func (s *service) Refresh(ctx context.Context, force bool) (*domain.RefreshStats, error) {
	if !force {
		valid, err := s.cache.IsValid(ctx, s.dataType, s.ttl)
		if err != nil {
			return nil, errors.Wrap(err, "failed to check cache freshness")
		}
		if valid {
			s.log.Debug().Str("data_type", s.dataType).Msg("card cache is fresh")
			return nil, nil
		}
	}

	v, err, shared := s.group.Do(s.dataType, func() (any, error) {
		return s.refresh(ctx, force)
	})
	if shared {
		s.log.Debug().Msg("joined in-flight refresh")
	}
	if err != nil {
		return nil, err
	}

	stats, _ := v.(*domain.RefreshStats)
	return stats, nil
}

func (s *service) RefreshInBackground(force bool) {
	go func() {
		if _, err := s.Refresh(context.Background(), force); err != nil {
			if errors.Is(err, domain.ErrRefreshInProgress) {
				s.log.Info().Msg("bulk refresh already running in another process")
				return
			}
			s.log.Error().Err(err).Msg("background bulk refresh failed")
		}
	}()
}

func (s *service) Running() bool {
	return s.running.Load()
}

func (s *service) refresh(ctx context.Context, force bool) (*domain.RefreshStats, error) {
	fl := flock.New(s.lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to acquire refresh lock %s", s.lockPath)
	}
	if !locked {
		return nil, domain.ErrRefreshInProgress
	}
	defer fl.Unlock()

	s.running.Store(true)
	defer s.running.Store(false)

	// another process may have finished a refresh while we waited
	if !force {
		if valid, err := s.cache.IsValid(ctx, s.dataType, s.ttl); err == nil && valid {
			return nil, nil
		}
	}

	stats, err := s.load(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("data_type", s.dataType).Msg("bulk refresh failed")
		if notifyErr := s.notifier.SendError(context.WithoutCancel(ctx), err); notifyErr != nil {
			s.log.Warn().Err(notifyErr).Msg("failed to send error notification")
		}
		return nil, err
	}

	if err := s.notifier.SendSuccess(ctx, *stats); err != nil {
		s.log.Warn().Err(err).Msg("failed to send success notification")
	}

	return stats, nil
}

func (s *service) load(ctx context.Context) (*domain.RefreshStats, error) {
	start := s.now()

	manifest, err := s.source.BulkManifest(ctx, s.dataType)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get bulk manifest")
	}

	s.log.Info().
		Str("data_type", manifest.DataType).
		Str("size", humanize.Bytes(uint64(max(manifest.SizeBytes, 0)))).
		Str("version", manifest.VersionToken).
		Msg("Downloading bulk card data..")

	meta := domain.CacheMetadata{
		DataType:     s.dataType,
		DownloadURL:  manifest.DownloadURI,
		UpdatedAt:    start,
		SizeBytes:    manifest.SizeBytes,
		VersionToken: manifest.VersionToken,
	}

	count, err := s.cache.ReplaceAll(ctx, meta, func(stage func([]domain.CardRecord) error) error {
		downloaded := 0
		_, err := s.source.DownloadBulkDataset(ctx, manifest.DownloadURI, batchSize, func(batch []domain.CardRecord) error {
			if err := stage(batch); err != nil {
				return err
			}
			downloaded += len(batch)
			s.log.Debug().Str("cards", humanize.Comma(int64(downloaded))).Msg("staged bulk cards")
			return nil
		})
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to replace card cache")
	}

	stats := &domain.RefreshStats{
		DataType:     s.dataType,
		TotalCards:   count,
		SizeBytes:    manifest.SizeBytes,
		VersionToken: manifest.VersionToken,
		Duration:     s.now().Sub(start),
	}

	if cs, err := s.cache.Stats(ctx, s.dataType, s.ttl); err == nil {
		stats.TotalSets = cs.TotalSets
	}

	s.log.Info().
		Str("cards", humanize.Comma(int64(stats.TotalCards))).
		Int("sets", stats.TotalSets).
		Dur("took", stats.Duration).
		Msg("Bulk card data refreshed")

	return stats, nil
}
