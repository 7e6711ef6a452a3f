package refresh

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varoOP/cardvault/internal/database"
	"github.com/varoOP/cardvault/internal/domain"
)

type fakeBulk struct {
	cards    []domain.CardRecord
	err      error
	started  chan struct{}
	release  chan struct{}
	manifest int32
}

func (f *fakeBulk) BulkManifest(ctx context.Context, dataType string) (*domain.BulkManifest, error) {
	atomic.AddInt32(&f.manifest, 1)
	return &domain.BulkManifest{DataType: dataType, DownloadURI: "https://bulk.test/cards.json", SizeBytes: 4096, VersionToken: "v1"}, nil
}

func (f *fakeBulk) DownloadBulkDataset(ctx context.Context, uri string, size int, fn func([]domain.CardRecord) error) (int, error) {
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	for start := 0; start < len(f.cards); start += 2 {
		if err := fn(f.cards[start:min(start+2, len(f.cards))]); err != nil {
			return start, err
		}
	}
	if f.err != nil {
		return len(f.cards), f.err
	}
	return len(f.cards), nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	successes []domain.RefreshStats
	failures  []error
}

func (n *fakeNotifier) SendSuccess(ctx context.Context, stats domain.RefreshStats) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, stats)
	return nil
}

func (n *fakeNotifier) SendError(ctx context.Context, err error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, err)
	return nil
}

func snapshot(n int) []domain.CardRecord {
	cards := make([]domain.CardRecord, n)
	for i := range cards {
		set := "zen"
		if i%2 == 1 {
			set = "wwk"
		}
		cards[i] = domain.CardRecord{ID: fmt.Sprint(i), Name: fmt.Sprintf("Card %d", i), SetCode: set, CollectorNumber: fmt.Sprint(i)}
	}
	return cards
}

func setup(t *testing.T, source *fakeBulk) (*service, domain.CardCache, *fakeNotifier, *domain.Config) {
	t.Helper()

	cfg := &domain.Config{
		DBPath:       filepath.Join(t.TempDir(), "cards.db"),
		BulkDataType: domain.DefaultDataType,
		CacheTTL:     time.Hour,
	}

	db, err := database.NewDB(cfg.DBPath, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cache := database.NewCardRepo(zerolog.Nop(), db)
	notifier := &fakeNotifier{}
	svc := NewService(zerolog.Nop(), cfg, cache, source, notifier).(*service)

	return svc, cache, notifier, cfg
}

func TestRefresh_LoadsStaleCache(t *testing.T) {
	svc, cache, notifier, _ := setup(t, &fakeBulk{cards: snapshot(5)})
	ctx := context.Background()

	stats, err := svc.EnsureFresh(ctx)
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 5, stats.TotalCards)
	assert.Equal(t, 2, stats.TotalSets)
	assert.Equal(t, "v1", stats.VersionToken)
	assert.Equal(t, int64(4096), stats.SizeBytes)

	valid, err := cache.IsValid(ctx, domain.DefaultDataType, time.Hour)
	require.NoError(t, err)
	assert.True(t, valid)

	meta, err := cache.Metadata(ctx, domain.DefaultDataType)
	require.NoError(t, err)
	assert.Equal(t, "https://bulk.test/cards.json", meta.DownloadURL)

	require.Len(t, notifier.successes, 1)
	assert.Empty(t, notifier.failures)
	assert.False(t, svc.Running())
}

func TestRefresh_SkipsFreshCacheUnlessForced(t *testing.T) {
	source := &fakeBulk{cards: snapshot(3)}
	svc, _, _, _ := setup(t, source)
	ctx := context.Background()

	_, err := svc.EnsureFresh(ctx)
	require.NoError(t, err)

	stats, err := svc.EnsureFresh(ctx)
	require.NoError(t, err)
	assert.Nil(t, stats)
	assert.Equal(t, int32(1), atomic.LoadInt32(&source.manifest))

	stats, err = svc.Refresh(ctx, true)
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, int32(2), atomic.LoadInt32(&source.manifest))
}

func TestRefresh_FailureKeepsOldCatalog(t *testing.T) {
	source := &fakeBulk{cards: snapshot(4)}
	svc, cache, notifier, _ := setup(t, source)
	ctx := context.Background()

	_, err := svc.EnsureFresh(ctx)
	require.NoError(t, err)

	source.cards = snapshot(10)[6:]
	source.err = errors.New("connection reset")

	_, err = svc.Refresh(ctx, true)
	require.Error(t, err)

	stats, err := cache.Stats(ctx, domain.DefaultDataType, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalCards)

	require.Len(t, notifier.failures, 1)
	assert.Contains(t, notifier.failures[0].Error(), "connection reset")
}

func TestRefresh_LockHeldElsewhere(t *testing.T) {
	svc, _, _, cfg := setup(t, &fakeBulk{cards: snapshot(2)})

	other := flock.New(cfg.DBPath + ".refresh.lock")
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer other.Unlock()

	_, err = svc.EnsureFresh(context.Background())
	assert.True(t, errors.Is(err, domain.ErrRefreshInProgress))
}

func TestRefresh_ConcurrentCallsShareOneDownload(t *testing.T) {
	source := &fakeBulk{
		cards:   snapshot(6),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc, _, notifier, _ := setup(t, source)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*domain.RefreshStats, 2)
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = svc.Refresh(ctx, true)
	}()

	<-source.started

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = svc.Refresh(ctx, true)
	}()

	assert.Eventually(t, svc.Running, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(source.release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, 6, results[0].TotalCards)
	assert.Same(t, results[0], results[1])
	assert.Equal(t, int32(1), atomic.LoadInt32(&source.manifest))
	assert.Len(t, notifier.successes, 1)
}

func TestRefresh_InBackground(t *testing.T) {
	svc, cache, _, _ := setup(t, &fakeBulk{cards: snapshot(3)})

	svc.RefreshInBackground(false)

	assert.Eventually(t, func() bool {
		valid, err := cache.IsValid(context.Background(), domain.DefaultDataType, time.Hour)
		return err == nil && valid
	}, 2*time.Second, 10*time.Millisecond)
}
