// Package jobs tracks CI jobs and their results.
package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"

	"extci/internal/models"
)

var ErrNotFound = errors.New("job not found")

type ListFilter struct {
	Ref    string
	Status models.JobStatus
	Limit  int
}

type Store interface {
	Create(ctx context.Context, job models.Job) error
	Get(ctx context.Context, id string) (*models.Job, error)
	List(ctx context.Context, filter ListFilter) ([]models.Job, error)
	Update(ctx context.Context, job models.Job) error
}

// MemoryStore keeps jobs in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]models.Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: map[string]models.Job{}}
}

func (s *MemoryStore) Create(_ context.Context, job models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return errors.New("job already exists")
	}
	s.jobs[job.ID] = clone(job)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := clone(job)
	return &out, nil
}

func (s *MemoryStore) List(_ context.Context, filter ListFilter) ([]models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if filter.Ref != "" && job.Ref != filter.Ref {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		out = append(out, clone(job))
	}

	// most recent first
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, job models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; !ok {
		return ErrNotFound
	}
	s.jobs[job.ID] = clone(job)
	return nil
}

func clone(job models.Job) models.Job {
	job.Steps = append([]models.StepResult(nil), job.Steps...)
	return job
}
