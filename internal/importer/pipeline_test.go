package importer

import (
	"context"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varoOP/cardvault/internal/collection"
	"github.com/varoOP/cardvault/internal/database"
	"github.com/varoOP/cardvault/internal/domain"
	"github.com/varoOP/cardvault/internal/progress"
	"github.com/varoOP/cardvault/internal/resolver"
)

type fakeResolver struct {
	mu     sync.Mutex
	cards  map[string]domain.CardRecord
	remote map[string]bool
	calls  int
}

func (f *fakeResolver) Resolve(ctx context.Context, name, set, number string) (*domain.CardRecord, domain.Provenance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	c, ok := f.cards[strings.ToLower(name)]
	if !ok {
		return nil, "", domain.ErrNotFound
	}
	if f.remote[strings.ToLower(name)] {
		return &c, domain.ProvenanceRemote, nil
	}
	return &c, domain.ProvenanceCache, nil
}

type fakeRefresher struct {
	ensure     int
	background int
	err        error
}

func (f *fakeRefresher) EnsureFresh(ctx context.Context) (*domain.RefreshStats, error) {
	f.ensure++
	return nil, f.err
}

func (f *fakeRefresher) RefreshInBackground(force bool) { f.background++ }

type recorder struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
}

func (r *recorder) emit(ev domain.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) count(status domain.JobStatus, done bool) int {
	n := 0
	for _, ev := range r.events {
		if ev.Status == status && ev.Done == done {
			n++
		}
	}
	return n
}

func row(kv ...string) domain.Row {
	r := domain.Row{}
	for i := 0; i+1 < len(kv); i += 2 {
		r[kv[i]] = kv[i+1]
	}
	return r
}

func testResolver() *fakeResolver {
	return &fakeResolver{
		cards: map[string]domain.CardRecord{
			"forest":         {ID: "f", Name: "Forest", SetCode: "6ed", CollectorNumber: "347"},
			"lightning bolt": {ID: "b", Name: "Lightning Bolt", SetCode: "6ed", CollectorNumber: "163"},
			"island":         {ID: "i", Name: "Island", SetCode: "zen", CollectorNumber: "234"},
		},
		remote: map[string]bool{"island": true},
	}
}

func TestPipeline_ImportsAndCountsErrors(t *testing.T) {
	coll := collection.NewManager(zerolog.Nop(), domain.DuplicatePolicySum)
	p := NewPipeline(zerolog.Nop(), testResolver(), coll, nil, domain.RefreshPolicyNever)
	rec := &recorder{}

	rows := []domain.Row{
		row("Name", "Forest", "Set", "6ED", "Collector Number", "347", "Quantity", "2", "Foil", "No"),
		row("Name", "Lightning Bolt", "Set", "6ED", "Quantity", "1", "Foil", "yes"),
		row("Name", "Island", "Set", "ZEN", "Quantity", "3"),
		row("Name", "Black Lotus", "Set", "LEA", "Quantity", "1"),
		row("Name", "Mox Pearl", "Set", "LEA", "Quantity", "1"),
	}

	result := p.Run(context.Background(), rows, rec.emit)

	assert.Equal(t, 3, result.ImportedCount)
	assert.Equal(t, []string{
		"Row 5: Could not find card 'Black Lotus' in set 'LEA'",
		"Row 6: Could not find card 'Mox Pearl' in set 'LEA'",
	}, result.Errors)
	assert.Equal(t, 2, result.CacheHits)
	assert.Equal(t, 1, result.APICalls)
	assert.InDelta(t, 66.666, result.CacheHitRate, 0.01)
	assert.True(t, result.Success)

	assert.Equal(t, 5, rec.count(domain.JobStatusProcessing, false))
	assert.Equal(t, 3, rec.count(domain.JobStatusImported, false))
	assert.Equal(t, 2, rec.count(domain.JobStatusError, false))
	assert.Equal(t, 1, rec.count(domain.JobStatusComplete, true))

	last := rec.events[len(rec.events)-1]
	assert.True(t, last.Done)
	assert.Equal(t, 5, last.CurrentRow)
	assert.Equal(t, 5, last.TotalRows)
	assert.Equal(t, result, last.Result)

	summary := coll.Summary()
	assert.Equal(t, 6, summary.TotalCards)
	assert.Equal(t, 3, summary.UniqueCards)
}

func TestPipeline_SkipsIncompleteRowsAndRecordsParseErrors(t *testing.T) {
	res := testResolver()
	p := NewPipeline(zerolog.Nop(), res, collection.NewManager(zerolog.Nop(), ""), nil, domain.RefreshPolicyNever)
	rec := &recorder{}

	rows := []domain.Row{
		row("Name", "", "Set", "6ED", "Quantity", "1"),
		row("Name", "Forest", "Set", "", "Quantity", "1"),
		row("Name", "Forest", "Set", "6ED", "Quantity", "0"),
		row("Name", "Forest", "Set", "6ED", "Quantity", "-2"),
		row("Name", "Forest", "Set", "6ED"),
		row("Name", "Forest", "Set", "6ED", "Quantity", "two"),
		row("Name", "Forest", "Set", "6ED", "Quantity", "1"),
	}

	result := p.Run(context.Background(), rows, rec.emit)

	assert.Equal(t, 1, result.ImportedCount)
	assert.Equal(t, []string{`Row 7: Invalid data format - invalid quantity "two"`}, result.Errors)
	assert.Equal(t, 1, res.calls)
	assert.Equal(t, 1, rec.count(domain.JobStatusProcessing, false))
	assert.Equal(t, 1, rec.count(domain.JobStatusError, false))
}

func TestPipeline_ProgressIsOrdered(t *testing.T) {
	p := NewPipeline(zerolog.Nop(), testResolver(), collection.NewManager(zerolog.Nop(), ""), nil, domain.RefreshPolicyNever)
	rec := &recorder{}

	var rows []domain.Row
	for i := 0; i < 20; i++ {
		rows = append(rows, row("Name", "Forest", "Set", "6ED", "Quantity", "1"))
	}
	p.Run(context.Background(), rows, rec.emit)

	prev := 0
	for _, ev := range rec.events {
		assert.GreaterOrEqual(t, ev.CurrentRow, prev)
		prev = ev.CurrentRow
	}
	assert.Equal(t, 1, rec.count(domain.JobStatusComplete, true))
}

func TestPipeline_ZeroTalliesHitRate(t *testing.T) {
	p := NewPipeline(zerolog.Nop(), testResolver(), collection.NewManager(zerolog.Nop(), ""), nil, domain.RefreshPolicyNever)

	result := p.Run(context.Background(), nil, nil)
	assert.Zero(t, result.CacheHitRate)
	assert.False(t, result.Success)
	assert.Empty(t, result.Errors)
}

func TestPipeline_AliasColumns(t *testing.T) {
	coll := collection.NewManager(zerolog.Nop(), domain.DuplicatePolicySum)
	p := NewPipeline(zerolog.Nop(), testResolver(), coll, nil, domain.RefreshPolicyNever)

	input := "Count,Tradelist Count,Name,Edition,Card Number,Condition,Foil,Language\n" +
		"4,0,Forest,Sixth Edition,347,Lightly Played,foil,\n" +
		"2,0,Forest,Sixth Edition,347,,FOIL,German\n"

	result := p.RunCSV(context.Background(), strings.NewReader(input), nil)
	require.Equal(t, 2, result.ImportedCount, result.Errors)

	entries := coll.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, 6, entries[0].Quantity)
	assert.True(t, entries[0].Foil)
	assert.Equal(t, "Lightly Played", entries[0].Condition)
	assert.Equal(t, domain.DefaultLanguage, entries[0].Language)
}

func TestPipeline_FoilValues(t *testing.T) {
	for _, v := range []string{"yes", "Yes", "TRUE", "1", "foil"} {
		p, skip, err := parseRow(row("Name", "Forest", "Set", "6ed", "Quantity", "1", "Foil", v))
		require.NoError(t, err)
		require.False(t, skip)
		assert.True(t, p.Foil, v)
	}
	for _, v := range []string{"", "no", "0", "etched"} {
		p, _, _ := parseRow(row("Name", "Forest", "Set", "6ed", "Quantity", "1", "Foil", v))
		assert.False(t, p.Foil, v)
	}
}

func TestPipeline_StrayQuoteDoesNotFailBatch(t *testing.T) {
	res := testResolver()
	coll := collection.NewManager(zerolog.Nop(), domain.DuplicatePolicySum)
	p := NewPipeline(zerolog.Nop(), res, coll, nil, domain.RefreshPolicyNever)
	rec := &recorder{}

	input := "Name,Set,Collector Number,Quantity,Foil\n" +
		"Forest,6ED,347,1,No\n" +
		"Lightning 12\" Bolt,6ED,163,1,No\n" +
		"Island,ZEN,234,1,No\n"

	result := p.RunCSV(context.Background(), strings.NewReader(input), rec.emit)

	assert.Equal(t, 2, result.ImportedCount)
	assert.Equal(t, []string{`Row 3: Could not find card 'Lightning 12" Bolt' in set '6ED'`}, result.Errors)
	assert.Equal(t, 3, res.calls)
	assert.Equal(t, 1, rec.count(domain.JobStatusComplete, true))
	assert.Equal(t, 2, coll.Summary().UniqueCards)
}

func TestPipeline_UnreadableLineIsRowError(t *testing.T) {
	res := testResolver()
	p := NewPipeline(zerolog.Nop(), res, collection.NewManager(zerolog.Nop(), ""), nil, domain.RefreshPolicyNever)
	rec := &recorder{}

	records := []Record{
		{Row: row("Name", "Forest", "Set", "6ED", "Quantity", "1")},
		{Err: &csv.ParseError{StartLine: 3, Line: 3, Column: 7, Err: csv.ErrQuote}},
		{Row: row("Name", "Island", "Set", "ZEN", "Quantity", "1")},
	}

	result := p.run(context.Background(), records, rec.emit)

	assert.Equal(t, 2, result.ImportedCount)
	require.Len(t, result.Errors, 1)
	assert.True(t, strings.HasPrefix(result.Errors[0], "Row 3: Invalid data format - "), result.Errors[0])
	assert.Equal(t, 2, res.calls)
	assert.Equal(t, 1, rec.count(domain.JobStatusError, false))
	assert.True(t, result.Success)
}

func TestPipeline_UnreadableFileFailsWholeBatch(t *testing.T) {
	tests := []struct {
		name  string
		input io.Reader
		want  string
	}{
		{"empty", strings.NewReader(""), "missing header row"},
		{"header", iotest.ErrReader(errors.New("disk gone")), "failed to read header row"},
		{"body", io.MultiReader(strings.NewReader("Name,Set,Quantity\nForest,6ED,1\n"), iotest.ErrReader(errors.New("disk gone"))), "disk gone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := testResolver()
			p := NewPipeline(zerolog.Nop(), res, collection.NewManager(zerolog.Nop(), ""), nil, domain.RefreshPolicyNever)
			rec := &recorder{}

			result := p.RunCSV(context.Background(), tt.input, rec.emit)

			assert.Zero(t, result.ImportedCount)
			require.Len(t, result.Errors, 1)
			assert.Contains(t, result.Errors[0], "CSV parsing error")
			assert.Contains(t, result.Errors[0], tt.want)
			require.Len(t, rec.events, 1)
			assert.True(t, rec.events[0].Done)
			assert.Equal(t, domain.JobStatusError, rec.events[0].Status)
			assert.Zero(t, res.calls)
		})
	}
}

func TestPipeline_ReimportKeepsQuantities(t *testing.T) {
	coll := collection.NewManager(zerolog.Nop(), domain.DuplicatePolicySum)
	p := NewPipeline(zerolog.Nop(), testResolver(), coll, nil, domain.RefreshPolicyNever)

	input := "Name,Set,Quantity\nForest,6ED,2\nForest,6ED,1\nIsland,ZEN,4\n"

	for i := 0; i < 2; i++ {
		result := p.RunCSV(context.Background(), strings.NewReader(input), nil)
		require.Equal(t, 3, result.ImportedCount, result.Errors)
	}

	assert.Equal(t, domain.CollectionSummary{TotalCards: 7, UniqueCards: 2, SetsRepresented: 2}, coll.Summary())
}

func TestPipeline_RefreshPolicies(t *testing.T) {
	tests := []struct {
		policy     domain.RefreshPolicy
		ensure     int
		background int
	}{
		{domain.RefreshPolicyBlocking, 1, 0},
		{domain.RefreshPolicyBackground, 0, 1},
		{domain.RefreshPolicyNever, 0, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			ref := &fakeRefresher{}
			p := NewPipeline(zerolog.Nop(), testResolver(), collection.NewManager(zerolog.Nop(), ""), ref, tt.policy)
			p.Run(context.Background(), []domain.Row{row("Name", "Forest", "Set", "6ED", "Quantity", "1")}, nil)

			assert.Equal(t, tt.ensure, ref.ensure)
			assert.Equal(t, tt.background, ref.background)
		})
	}
}

func TestPipeline_RefreshFailureDoesNotAbort(t *testing.T) {
	ref := &fakeRefresher{err: errors.New("offline")}
	p := NewPipeline(zerolog.Nop(), testResolver(), collection.NewManager(zerolog.Nop(), ""), ref, domain.RefreshPolicyBlocking)

	result := p.Run(context.Background(), []domain.Row{row("Name", "Forest", "Set", "6ED", "Quantity", "1")}, nil)
	assert.Equal(t, 1, result.ImportedCount)
}

func TestPipeline_Cancelled(t *testing.T) {
	p := NewPipeline(zerolog.Nop(), testResolver(), collection.NewManager(zerolog.Nop(), ""), nil, domain.RefreshPolicyNever)
	rec := &recorder{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := p.Run(ctx, []domain.Row{row("Name", "Forest", "Set", "6ED", "Quantity", "1")}, rec.emit)
	assert.Zero(t, result.ImportedCount)
	assert.Equal(t, 1, rec.count(domain.JobStatusError, true))
}

func TestPipeline_EndToEndWithCache(t *testing.T) {
	db, err := database.NewDB(filepath.Join(t.TempDir(), "cards.db"), zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	cache := database.NewCardRepo(zerolog.Nop(), db)
	_, err = cache.UpsertBatch(context.Background(), []domain.CardRecord{
		{ID: "forest-6ed", Name: "Forest", SetCode: "6ed", CollectorNumber: "347", SetName: "Classic Sixth Edition"},
		{ID: "bolt-6ed", Name: "Lightning Bolt", SetCode: "6ed", CollectorNumber: "163", SetName: "Classic Sixth Edition"},
	})
	require.NoError(t, err)

	res := resolver.NewService(zerolog.Nop(), cache, nil, nil)
	coll := collection.NewManager(zerolog.Nop(), domain.DuplicatePolicySum)
	p := NewPipeline(zerolog.Nop(), res, coll, nil, domain.RefreshPolicyNever)

	input := "Name,Set,Collector Number,Quantity,Foil\n" +
		"Forest,6ED,347,1,No\n" +
		"Lightning Bolt,6ED,163,1,No\n"

	result := p.RunCSV(context.Background(), strings.NewReader(input), nil)

	assert.Equal(t, 2, result.ImportedCount)
	assert.Equal(t, 2, result.CacheHits)
	assert.Equal(t, 0, result.APICalls)
	assert.Empty(t, result.Errors)
	assert.Equal(t, float64(100), result.CacheHitRate)
}

func TestRunner_TwoJobsDoNotInterfere(t *testing.T) {
	broker := progress.NewBroker(zerolog.Nop())
	p := NewPipeline(zerolog.Nop(), testResolver(), collection.NewManager(zerolog.Nop(), ""), nil, domain.RefreshPolicyNever)
	r := NewRunner(zerolog.Nop(), p, broker)

	a := r.Start(context.Background(), []byte("Name,Set,Quantity\nForest,6ED,1\nForest,6ED,1\n"))
	b := r.Start(context.Background(), []byte("Name,Set,Quantity\nBlack Lotus,LEA,1\n"))
	require.NotEqual(t, a, b)

	wait := func(id string) domain.ImportJob {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		var version uint64
		for {
			job, v, err := broker.Wait(ctx, id, version)
			require.NoError(t, err)
			if job.Status.Terminal() {
				return job
			}
			version = v
		}
	}

	jobA := wait(a)
	jobB := wait(b)

	assert.Equal(t, domain.JobStatusComplete, jobA.Status)
	assert.Equal(t, 2, jobA.ImportedCount)
	assert.Empty(t, jobA.Errors)
	assert.Equal(t, a, jobA.JobID)

	assert.Equal(t, domain.JobStatusComplete, jobB.Status)
	assert.Zero(t, jobB.ImportedCount)
	assert.Equal(t, []string{"Row 2: Could not find card 'Black Lotus' in set 'LEA'"}, jobB.Errors)
}

func TestRunner_SurvivesCancelledRequestContext(t *testing.T) {
	broker := progress.NewBroker(zerolog.Nop())
	p := NewPipeline(zerolog.Nop(), testResolver(), collection.NewManager(zerolog.Nop(), ""), nil, domain.RefreshPolicyNever)
	r := NewRunner(zerolog.Nop(), p, broker)

	ctx, cancel := context.WithCancel(context.Background())
	id := r.Start(ctx, []byte("Name,Set,Quantity\nForest,6ED,1\n"))
	cancel()

	assert.Eventually(t, func() bool {
		job, _, ok := broker.Get(id)
		return ok && job.Status == domain.JobStatusComplete && job.ImportedCount == 1
	}, 2*time.Second, 5*time.Millisecond)
}
