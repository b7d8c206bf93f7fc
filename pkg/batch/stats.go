package batch

import (
	"log/slog"
	"time"
)

// RunStatistics accumulates the outcome of one run: the fixed counters every
// job reports plus an open-ended per-category breakdown (per-OS, per-state,
// per-department). It is owned by exactly one run and mutated only from the
// goroutine driving that run; once Finalize is called the record is
// read-only and late increments are dropped with a warning.
type RunStatistics struct {
	Processed int
	Succeeded int
	Skipped   int
	Errors    int

	SkipReasons map[string]int
	Categories  map[string]int

	Duration time.Duration

	started   time.Time
	finalized bool
}

func NewRunStatistics() *RunStatistics {
	return &RunStatistics{
		SkipReasons: make(map[string]int),
		Categories:  make(map[string]int),
		started:     time.Now(),
	}
}

// IncrementCategory bumps the named category counter, creating the entry on
// first touch.
func (s *RunStatistics) IncrementCategory(key string) {
	if s.finalized {
		slog.Warn("statistics already finalized, dropping increment", "category", key)
		return
	}
	s.Categories[key]++
}

// MarkSkipped counts one skipped item under the given reason.
func (s *RunStatistics) MarkSkipped(reason string) {
	if s.finalized {
		slog.Warn("statistics already finalized, dropping skip", "reason", reason)
		return
	}
	s.Skipped++
	s.SkipReasons[reason]++
}

// Finalize stamps the run duration and freezes the record. Calling it again
// is a no-op.
func (s *RunStatistics) Finalize() {
	if s.finalized {
		return
	}
	s.Duration = time.Since(s.started)
	s.finalized = true
}

// Finalized reports whether the record has been frozen.
func (s *RunStatistics) Finalized() bool {
	return s.finalized
}

// Summary flattens the record into the run's machine-readable result: the
// fixed counters, skipped_<reason> entries, and the category counters as
// top-level keys.
func (s *RunStatistics) Summary() map[string]any {
	duration := s.Duration
	if !s.finalized {
		duration = time.Since(s.started)
	}

	summary := map[string]any{
		"processed":        s.Processed,
		"succeeded":        s.Succeeded,
		"skipped":          s.Skipped,
		"errors":           s.Errors,
		"duration_seconds": duration.Seconds(),
	}

	for reason, count := range s.SkipReasons {
		summary["skipped_"+reason] = count
	}
	for category, count := range s.Categories {
		summary[category] = count
	}

	return summary
}
