package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cityconnect/internal/announcement/models"
	"cityconnect/pkg/platform/sentinel"
)

// Error Contract:
// - Return sentinel.ErrNotFound when the announcement does not exist
// - Return sentinel.ErrAlreadyUsed when an id is reused on Create
// - Errors from validate callbacks are returned unchanged

// InMemory stores announcements in memory for tests and single-process deployments.
type InMemory struct {
	mu            sync.RWMutex
	announcements map[string]*models.Announcement
}

func NewInMemory() *InMemory {
	return &InMemory{announcements: make(map[string]*models.Announcement)}
}

func (s *InMemory) Create(_ context.Context, a *models.Announcement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.announcements[a.ID]; exists {
		return fmt.Errorf("announcement %s: %w", a.ID, sentinel.ErrAlreadyUsed)
	}
	s.announcements[a.ID] = clone(a)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.announcements[id]
	if !ok {
		return nil, fmt.Errorf("announcement not found: %w", sentinel.ErrNotFound)
	}
	return clone(a), nil
}

// List returns the announcements matching filter, latest date first.
func (s *InMemory) List(_ context.Context, filter models.Filter) ([]*models.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Announcement, 0, len(s.announcements))
	for _, a := range s.announcements {
		if filter.Matches(a) {
			out = append(out, clone(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			if out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].ID > out[j].ID
			}
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

// Execute loads the announcement, runs validate and mutate on a copy and
// stores the result under the write lock.
func (s *InMemory) Execute(_ context.Context, id string, validate func(*models.Announcement) error, mutate func(*models.Announcement)) (*models.Announcement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.announcements[id]
	if !ok {
		return nil, fmt.Errorf("announcement not found: %w", sentinel.ErrNotFound)
	}
	working := clone(existing)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.announcements[id] = working
	return clone(working), nil
}

// Delete removes the announcement if validate accepts it.
func (s *InMemory) Delete(_ context.Context, id string, validate func(*models.Announcement) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.announcements[id]
	if !ok {
		return fmt.Errorf("announcement not found: %w", sentinel.ErrNotFound)
	}
	if err := validate(clone(existing)); err != nil {
		return err
	}
	delete(s.announcements, id)
	return nil
}

func clone(a *models.Announcement) *models.Announcement {
	cp := *a
	if a.Location != nil {
		v := *a.Location
		cp.Location = &v
	}
	if a.TargetDepartment != nil {
		v := *a.TargetDepartment
		cp.TargetDepartment = &v
	}
	return &cp
}
