package domain

import "time"

// JobStatus is the lifecycle state of an import job or the kind of a progress event
type JobStatus string

const (
	JobStatusStarting   JobStatus = "starting"
	JobStatusProcessing JobStatus = "processing"
	JobStatusImported   JobStatus = "imported"
	JobStatusComplete   JobStatus = "complete"
	JobStatusError      JobStatus = "error"
)

// Terminal reports whether no further updates follow this status
func (s JobStatus) Terminal() bool {
	return s == JobStatusComplete || s == JobStatusError
}

// Row is one import row, keyed by column header
type Row map[string]string

// ProgressEvent is emitted by the import pipeline for each row and once at the end.
// Row events carry processing, imported or error; the final event has Done set
// and carries complete or error.
type ProgressEvent struct {
	CurrentRow int       `json:"current"`
	TotalRows  int       `json:"total"`
	CardName   string    `json:"card_name,omitempty"`
	Status     JobStatus `json:"status"`
	Done       bool      `json:"done"`

	// tallies as of this event
	Result ImportResult `json:"result"`
}

// ImportResult holds the tallies of a finished import pass
type ImportResult struct {
	ImportedCount int      `json:"imported_count"`
	Errors        []string `json:"errors"`
	CacheHits     int      `json:"cache_hits"`
	APICalls      int      `json:"api_calls"`
	CacheHitRate  float64  `json:"cache_hit_rate"`
	Success       bool     `json:"success"`
}

// HitRate returns cacheHits / max(1, cacheHits+apiCalls) * 100
func HitRate(cacheHits, apiCalls int) float64 {
	total := cacheHits + apiCalls
	if total < 1 {
		total = 1
	}
	return float64(cacheHits) / float64(total) * 100
}

// ImportJob is the progress snapshot of an asynchronous import
type ImportJob struct {
	JobID         string    `json:"job_id"`
	Status        JobStatus `json:"status"`
	CurrentRow    int       `json:"current"`
	TotalRows     int       `json:"total"`
	CardName      string    `json:"card_name,omitempty"`
	ImportedCount int       `json:"imported_count"`
	Errors        []string  `json:"errors"`
	CacheHits     int       `json:"cache_hits"`
	APICalls      int       `json:"api_calls"`
	CacheHitRate  float64   `json:"cache_hit_rate"`
	UpdatedAt     time.Time `json:"updated_at"`
}
