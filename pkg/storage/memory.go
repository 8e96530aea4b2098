package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/picogrid/evasion-sim/pkg/telemetry"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string][]telemetry.EpisodeRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string][]telemetry.EpisodeRecord)
	return nil
}

func (s *MemoryStore) SaveEpisode(_ context.Context, rec telemetry.EpisodeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.runs[rec.RunID] = append(s.runs[rec.RunID], rec)
	return nil
}

func (s *MemoryStore) ListEpisodes(_ context.Context, runID string) ([]telemetry.EpisodeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, errors.New("store is not initialized")
	}
	records := s.runs[runID]
	out := make([]telemetry.EpisodeRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Episode < out[j].Episode })
	return out, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, errors.New("store is not initialized")
	}
	runs := make([]string, 0, len(s.runs))
	for id := range s.runs {
		runs = append(runs, id)
	}
	sort.Strings(runs)
	return runs, nil
}
