package pipeline

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Stats tracks run counters across pipeline stages. Every field is updated
// atomically; stages never share locks with each other.
type Stats struct {
	BlocksRead atomic.Int64 // entity blocks consumed from the dump
	Accepted   atomic.Int64 // blocks that matched a configured kind
	Rejected   atomic.Int64 // blocks that matched no kind
	Dropped    atomic.Int64 // accepted blocks unusable at extraction (no id, undecodable)
	Warnings   atomic.Int64 // per-field extraction warnings
	Flawed     atomic.Int64 // entities emitted with at least one warning
	CacheHits  atomic.Int64 // resolutions served from the cache
	Lookups    atomic.Int64 // resolutions that went to the external service
	Unresolved atomic.Int64 // properties that could not be resolved
	Written    atomic.Int64 // entities written to the sinks
}

// Report is the final summary of one extraction run.
type Report struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`

	BlocksRead int64 `json:"blocks_read"`
	Accepted   int64 `json:"accepted"`
	Rejected   int64 `json:"rejected"`
	Dropped    int64 `json:"dropped"`
	Warnings   int64 `json:"warnings"`
	Flawed     int64 `json:"entities_with_warnings"`
	CacheHits  int64 `json:"cache_hits"`
	Lookups    int64 `json:"lookups"`
	Unresolved int64 `json:"unresolved"`
	Written    int64 `json:"written"`
}

func newReport() *Report {
	return &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
}

func (r *Report) finish(s *Stats) {
	r.FinishedAt = time.Now()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
	r.BlocksRead = s.BlocksRead.Load()
	r.Accepted = s.Accepted.Load()
	r.Rejected = s.Rejected.Load()
	r.Dropped = s.Dropped.Load()
	r.Warnings = s.Warnings.Load()
	r.Flawed = s.Flawed.Load()
	r.CacheHits = s.CacheHits.Load()
	r.Lookups = s.Lookups.Load()
	r.Unresolved = s.Unresolved.Load()
	r.Written = s.Written.Load()
}
