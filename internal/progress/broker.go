// Package progress holds the latest snapshot of every running import job.
package progress

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/varoOP/cardvault/internal/domain"
)

type entry struct {
	job     domain.ImportJob
	version uint64
	changed chan struct{}

	// zero until the job is retired
	expires time.Time
}

// Broker is safe for one writer per job and any number of readers.
// Each update closes the job's changed channel so waiting readers wake up.
type Broker struct {
	log zerolog.Logger
	now func() time.Time

	mu   sync.Mutex
	jobs map[string]*entry
}

func NewBroker(log zerolog.Logger) *Broker {
	return &Broker{
		log:  log.With().Str("module", "progress").Logger(),
		now:  time.Now,
		jobs: make(map[string]*entry),
	}
}

// Start registers jobID in the starting state
func (b *Broker) Start(jobID string) {
	b.Update(jobID, domain.ImportJob{Status: domain.JobStatusStarting, Errors: []string{}})
}

// Update overwrites the snapshot of jobID
func (b *Broker) Update(jobID string, job domain.ImportJob) {
	job.JobID = jobID
	job.UpdatedAt = b.now()
	job.Errors = append([]string(nil), job.Errors...)

	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.jobs[jobID]
	if !ok {
		e = &entry{changed: make(chan struct{})}
		b.jobs[jobID] = e
	}

	e.job = job
	e.version++
	close(e.changed)
	e.changed = make(chan struct{})
}

// Get returns the latest snapshot of jobID and its version
func (b *Broker) Get(jobID string) (domain.ImportJob, uint64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.live(jobID)
	if !ok {
		return domain.ImportJob{}, 0, false
	}

	return copyJob(e.job), e.version, true
}

// Wait blocks until jobID has a snapshot newer than afterVersion, then returns
// it. Cancelling ctx stops the wait, not the job.
func (b *Broker) Wait(ctx context.Context, jobID string, afterVersion uint64) (domain.ImportJob, uint64, error) {
	for {
		b.mu.Lock()
		e, ok := b.live(jobID)
		if !ok {
			b.mu.Unlock()
			return domain.ImportJob{}, 0, domain.ErrJobNotFound
		}
		if e.version > afterVersion {
			job, version := copyJob(e.job), e.version
			b.mu.Unlock()
			return job, version, nil
		}
		changed := e.changed
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return domain.ImportJob{}, 0, ctx.Err()
		case <-changed:
		}
	}
}

// Cleanup forgets jobID and wakes its waiters
func (b *Broker) Cleanup(jobID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.jobs[jobID]; ok {
		close(e.changed)
		delete(b.jobs, jobID)
	}
}

// Retire keeps jobID readable for grace more, then forgets it. Retiring an
// already retired job keeps the earlier deadline. A grace of zero or less
// forgets the job now.
func (b *Broker) Retire(jobID string, grace time.Duration) {
	if grace <= 0 {
		b.Cleanup(jobID)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.jobs[jobID]; ok && e.expires.IsZero() {
		e.expires = b.now().Add(grace)
	}
}

// live returns the entry of jobID, dropping it when its grace has run out.
// b.mu must be held.
func (b *Broker) live(jobID string) (*entry, bool) {
	e, ok := b.jobs[jobID]
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && !b.now().Before(e.expires) {
		close(e.changed)
		delete(b.jobs, jobID)
		return nil, false
	}
	return e, true
}

// Reap removes retired jobs past their grace and jobs whose last update is
// older than idle, and returns how many
func (b *Broker) Reap(idle time.Duration) int {
	now := b.now()
	cutoff := now.Add(-idle)

	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for id, e := range b.jobs {
		expired := !e.expires.IsZero() && !now.Before(e.expires)
		if expired || e.job.UpdatedAt.Before(cutoff) {
			close(e.changed)
			delete(b.jobs, id)
			n++
		}
	}

	return n
}

// RunReaper calls Reap every interval until ctx is done
func (b *Broker) RunReaper(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := b.Reap(idle); n > 0 {
				b.log.Debug().Int("jobs", n).Msg("reaped idle import jobs")
			}
		}
	}
}

// Len returns the number of tracked jobs
func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.jobs)
}

func copyJob(job domain.ImportJob) domain.ImportJob {
	job.Errors = append([]string{}, job.Errors...)
	return job
}
