package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cityconnect/internal/job/models"
	"cityconnect/pkg/platform/sentinel"
)

// Error Contract:
// - Return sentinel.ErrNotFound when the job does not exist
// - Return sentinel.ErrAlreadyUsed when an id is reused on Create
// - Errors from validate callbacks are returned unchanged

// InMemory stores job postings in memory for tests and single-process deployments.
type InMemory struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
}

func NewInMemory() *InMemory {
	return &InMemory{jobs: make(map[string]*models.Job)}
}

func (s *InMemory) Create(_ context.Context, j *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[j.ID]; exists {
		return fmt.Errorf("job %s: %w", j.ID, sentinel.ErrAlreadyUsed)
	}
	s.jobs[j.ID] = clone(j)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job not found: %w", sentinel.ErrNotFound)
	}
	return clone(j), nil
}

// List returns the jobs matching filter, newest first.
func (s *InMemory) List(_ context.Context, filter models.Filter) ([]*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if filter.Matches(j) {
			out = append(out, clone(j))
		}
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].ID > out[k].ID
		}
		return out[i].CreatedAt.After(out[k].CreatedAt)
	})
	return out, nil
}

// Execute loads the job, runs validate and mutate on a copy and stores the
// result under the write lock.
func (s *InMemory) Execute(_ context.Context, id string, validate func(*models.Job) error, mutate func(*models.Job)) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job not found: %w", sentinel.ErrNotFound)
	}
	working := clone(existing)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.jobs[id] = working
	return clone(working), nil
}

// Delete removes the job if validate accepts it.
func (s *InMemory) Delete(_ context.Context, id string, validate func(*models.Job) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job not found: %w", sentinel.ErrNotFound)
	}
	if err := validate(clone(existing)); err != nil {
		return err
	}
	delete(s.jobs, id)
	return nil
}

func clone(j *models.Job) *models.Job {
	cp := *j
	cp.Requirements = append([]string{}, j.Requirements...)
	if j.ContactPhone != nil {
		v := *j.ContactPhone
		cp.ContactPhone = &v
	}
	return &cp
}
