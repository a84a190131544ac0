// Package usage tallies LLM token usage for the running process.
package usage

import (
	"sort"
	"sync"
	"time"

	"sensetrack/domain/core"
	"sensetrack/internal/logger"
	"sensetrack/ports"
)

// ModelUsage is the running total for one provider/model pair
type ModelUsage struct {
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	Calls            int    `json:"calls"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
}

// Summary aggregates everything recorded since the service started
type Summary struct {
	Since        time.Time      `json:"since"`
	Calls        int            `json:"calls"`
	TotalTokens  int            `json:"total_tokens"`
	ByModel      []ModelUsage   `json:"by_model"`
	ByOperation  map[string]int `json:"by_operation"`
	LastRecorded *time.Time     `json:"last_recorded,omitempty"`
}

// Service handles LLM usage tracking
type Service struct {
	mu          sync.Mutex
	clock       core.Clock
	since       time.Time
	last        time.Time
	models      map[string]*ModelUsage
	byOperation map[string]int
	log         *logger.Logger
}

var _ ports.UsageRecorder = (*Service)(nil)

// NewService creates a new usage service
func NewService(clock core.Clock, log *logger.Logger) *Service {
	if clock == nil {
		clock = core.SystemClock
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		clock:       clock,
		since:       clock(),
		models:      make(map[string]*ModelUsage),
		byOperation: make(map[string]int),
		log:         log.With("component", "usage"),
	}
}

// RecordUsage adds one call's usage to the totals. Nil or negative usage is
// logged and ignored; tracking never fails the caller.
func (s *Service) RecordUsage(operation string, usage *ports.UsageData) {
	if usage == nil {
		s.log.Warn("nil usage data", "operation", operation)
		return
	}
	if usage.PromptTokens < 0 || usage.CompletionTokens < 0 || usage.TotalTokens < 0 {
		s.log.Warn("invalid token counts", "operation", operation, "total_tokens", usage.TotalTokens)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := usage.Provider + "/" + usage.Model
	m, ok := s.models[key]
	if !ok {
		m = &ModelUsage{Provider: usage.Provider, Model: usage.Model}
		s.models[key] = m
	}
	m.Calls++
	m.PromptTokens += usage.PromptTokens
	m.CompletionTokens += usage.CompletionTokens
	m.TotalTokens += usage.TotalTokens
	s.byOperation[operation] += usage.TotalTokens
	s.last = s.clock()

	s.log.Debug("usage recorded", "operation", operation, "model", usage.Model, "total_tokens", usage.TotalTokens)
}

// Summary returns a copy of the totals, models sorted by token count
func (s *Service) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Summary{
		Since:       s.since,
		ByModel:     make([]ModelUsage, 0, len(s.models)),
		ByOperation: make(map[string]int, len(s.byOperation)),
	}
	for _, m := range s.models {
		out.ByModel = append(out.ByModel, *m)
		out.Calls += m.Calls
		out.TotalTokens += m.TotalTokens
	}
	sort.Slice(out.ByModel, func(i, j int) bool {
		if out.ByModel[i].TotalTokens != out.ByModel[j].TotalTokens {
			return out.ByModel[i].TotalTokens > out.ByModel[j].TotalTokens
		}
		return out.ByModel[i].Model < out.ByModel[j].Model
	})
	for op, n := range s.byOperation {
		out.ByOperation[op] = n
	}
	if !s.last.IsZero() {
		last := s.last
		out.LastRecorded = &last
	}
	return out
}
