package importer

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/cardvault/internal/domain"
	"github.com/varoOP/cardvault/internal/resolver"
)

// Refresher keeps the card cache current before an import
type Refresher interface {
	EnsureFresh(ctx context.Context) (*domain.RefreshStats, error)
	RefreshInBackground(force bool)
}

// EmitFunc receives progress events in row order
type EmitFunc func(domain.ProgressEvent)

type Pipeline struct {
	log        zerolog.Logger
	resolver   resolver.Service
	collection domain.CollectionStore
	refresher  Refresher
	policy     domain.RefreshPolicy
}

func NewPipeline(log zerolog.Logger, resolver resolver.Service, collection domain.CollectionStore, refresher Refresher, policy domain.RefreshPolicy) *Pipeline {
	if policy == "" {
		policy = domain.RefreshPolicyBlocking
	}

	return &Pipeline{
		log:        log.With().Str("module", "importer").Logger(),
		resolver:   resolver,
		collection: collection,
		refresher:  refresher,
		policy:     policy,
	}
}

// RunCSV parses r and imports its rows. A file without a readable header
// fails the whole import with a single error; malformed lines after it are
// row errors.
func (p *Pipeline) RunCSV(ctx context.Context, r io.Reader, emit EmitFunc) domain.ImportResult {
	records, err := ParseCSV(r)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to parse import file")
		result := domain.ImportResult{Errors: []string{fmt.Sprintf("CSV parsing error: %v", err)}}
		emitTo(emit, domain.ProgressEvent{Status: domain.JobStatusError, Done: true, Result: result})
		return result
	}

	return p.run(ctx, records, emit)
}

// Run resolves every row and adds the matches to the collection. Row level
// failures are recorded and never stop the batch.
func (p *Pipeline) Run(ctx context.Context, rows []domain.Row, emit EmitFunc) domain.ImportResult {
	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = Record{Row: row}
	}
	return p.run(ctx, records, emit)
}

func (p *Pipeline) run(ctx context.Context, records []Record, emit EmitFunc) domain.ImportResult {
	p.prepareCache(ctx)

	total := len(records)
	result := domain.ImportResult{Errors: []string{}}
	batch := p.collection.NewBatch()

	event := func(current int, name string, status domain.JobStatus) {
		result.CacheHitRate = domain.HitRate(result.CacheHits, result.APICalls)
		snapshot := result
		snapshot.Errors = append([]string{}, result.Errors...)
		emitTo(emit, domain.ProgressEvent{
			CurrentRow: current,
			TotalRows:  total,
			CardName:   name,
			Status:     status,
			Result:     snapshot,
		})
	}

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Import cancelled after %d of %d rows", i, total))
			return p.finish(emit, result, total, domain.JobStatusError)
		}

		current := i + 1
		rowNum := i + 2

		if rec.Err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: Invalid data format - %v", rowNum, rec.Err))
			event(current, "", domain.JobStatusError)
			continue
		}

		parsed, skip, err := parseRow(rec.Row)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: Invalid data format - %v", rowNum, err))
			event(current, parsed.Name, domain.JobStatusError)
			continue
		}
		if skip {
			continue
		}

		event(current, parsed.Name, domain.JobStatusProcessing)

		card, provenance, err := p.resolver.Resolve(ctx, parsed.Name, parsed.Set, parsed.CollectorNumber)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				p.log.Warn().Err(err).Int("row", rowNum).Msg("resolve failed")
			}
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: Could not find card '%s' in set '%s'", rowNum, parsed.Name, parsed.Set))
			event(current, parsed.Name, domain.JobStatusError)
			continue
		}

		batch.Add(domain.NewCollectionEntry(*card, parsed.Quantity, parsed.Foil, parsed.Condition, parsed.Language))
		result.ImportedCount++
		if provenance == domain.ProvenanceCache {
			result.CacheHits++
		} else {
			result.APICalls++
		}

		event(current, card.Name, domain.JobStatusImported)
	}

	return p.finish(emit, result, total, domain.JobStatusComplete)
}

func (p *Pipeline) finish(emit EmitFunc, result domain.ImportResult, total int, status domain.JobStatus) domain.ImportResult {
	result.CacheHitRate = domain.HitRate(result.CacheHits, result.APICalls)
	result.Success = result.ImportedCount > 0

	p.log.Info().
		Int("imported", result.ImportedCount).
		Int("errors", len(result.Errors)).
		Int("cache_hits", result.CacheHits).
		Int("api_calls", result.APICalls).
		Float64("hit_rate", result.CacheHitRate).
		Msg("Import finished")

	emitTo(emit, domain.ProgressEvent{
		CurrentRow: total,
		TotalRows:  total,
		Status:     status,
		Done:       true,
		Result:     result,
	})

	return result
}

func (p *Pipeline) prepareCache(ctx context.Context) {
	if p.refresher == nil {
		return
	}

	switch p.policy {
	case domain.RefreshPolicyNever:
		return
	case domain.RefreshPolicyBackground:
		p.refresher.RefreshInBackground(false)
	default:
		if _, err := p.refresher.EnsureFresh(ctx); err != nil {
			p.log.Warn().Err(err).Msg("cache refresh failed, importing against existing cache")
		}
	}
}

func emitTo(emit EmitFunc, ev domain.ProgressEvent) {
	if emit != nil {
		emit(ev)
	}
}
