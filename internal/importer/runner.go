package importer

import (
	"bytes"
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/varoOP/cardvault/internal/domain"
)

// JobStore receives the latest snapshot of each job
type JobStore interface {
	Start(jobID string)
	Update(jobID string, job domain.ImportJob)
}

// Runner executes imports asynchronously, one goroutine per job
type Runner struct {
	log      zerolog.Logger
	pipeline *Pipeline
	jobs     JobStore
}

func NewRunner(log zerolog.Logger, pipeline *Pipeline, jobs JobStore) *Runner {
	return &Runner{
		log:      log.With().Str("module", "runner").Logger(),
		pipeline: pipeline,
		jobs:     jobs,
	}
}

// Start launches an import of the CSV content and returns its job id.
// The job outlives ctx; only values are taken from it.
func (r *Runner) Start(ctx context.Context, content []byte) string {
	jobID := uuid.NewString()
	r.jobs.Start(jobID)

	ctx = context.WithoutCancel(ctx)
	data := bytes.Clone(content)

	go func() {
		log := r.log.With().Str("job_id", jobID).Logger()
		log.Debug().Int("bytes", len(data)).Msg("import job started")

		result := r.pipeline.RunCSV(ctx, bytes.NewReader(data), func(ev domain.ProgressEvent) {
			r.jobs.Update(jobID, snapshot(ev))
		})

		log.Debug().Int("imported", result.ImportedCount).Msg("import job finished")
	}()

	return jobID
}

func snapshot(ev domain.ProgressEvent) domain.ImportJob {
	status := domain.JobStatusProcessing
	if ev.Done {
		status = ev.Status
	}

	return domain.ImportJob{
		Status:        status,
		CurrentRow:    ev.CurrentRow,
		TotalRows:     ev.TotalRows,
		CardName:      ev.CardName,
		ImportedCount: ev.Result.ImportedCount,
		Errors:        ev.Result.Errors,
		CacheHits:     ev.Result.CacheHits,
		APICalls:      ev.Result.APICalls,
		CacheHitRate:  ev.Result.CacheHitRate,
	}
}
