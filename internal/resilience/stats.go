package resilience

import "sync"

// RetryStatistics accumulates attempt counts for one stage type. Values only
// grow; readers get copies.
type RetryStatistics struct {
	TotalAttempts int     `json:"total_attempts"`
	TotalRetries  int     `json:"total_retries"`
	Successes     int     `json:"successes"`
	Failures      int     `json:"failures"`
	SuccessRate   float64 `json:"success_rate"`
}

// StatsRegistry tracks retry statistics per stage type across all runs.
type StatsRegistry struct {
	mu    sync.Mutex
	stats map[string]*RetryStatistics
}

// NewStatsRegistry creates an empty statistics registry.
func NewStatsRegistry() *StatsRegistry {
	return &StatsRegistry{stats: make(map[string]*RetryStatistics)}
}

func (r *StatsRegistry) entry(stageType string) *RetryStatistics {
	s, ok := r.stats[stageType]
	if !ok {
		s = &RetryStatistics{}
		r.stats[stageType] = s
	}
	return s
}

// RecordAttempt counts one operation invocation; retry is true for every
// attempt after the first within a single execution.
func (r *StatsRegistry) RecordAttempt(stageType string, retry bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.entry(stageType)
	s.TotalAttempts++
	if retry {
		s.TotalRetries++
	}
}

// RecordOutcome counts the terminal result of one execution.
func (r *StatsRegistry) RecordOutcome(stageType string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.entry(stageType)
	if success {
		s.Successes++
	} else {
		s.Failures++
	}
	if total := s.Successes + s.Failures; total > 0 {
		s.SuccessRate = float64(s.Successes) / float64(total)
	}
}

// Get returns a copy of the statistics for one stage type.
func (r *StatsRegistry) Get(stageType string) RetryStatistics {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stats[stageType]; ok {
		return *s
	}
	return RetryStatistics{}
}

// Snapshot returns a copy of all per-stage statistics.
func (r *StatsRegistry) Snapshot() map[string]RetryStatistics {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]RetryStatistics, len(r.stats))
	for k, v := range r.stats {
		out[k] = *v
	}
	return out
}
