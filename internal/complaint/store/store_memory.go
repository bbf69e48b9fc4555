package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cityconnect/internal/complaint/models"
	"cityconnect/pkg/platform/sentinel"
)

// Error Contract:
// - Return sentinel.ErrNotFound when the complaint does not exist
// - Return sentinel.ErrAlreadyUsed when an id is reused on Create
// - Errors from Execute's validate callback are returned unchanged
//
// Returned complaints are copies; callers may modify them freely.

// InMemory stores complaints in memory for tests and single-process deployments.
type InMemory struct {
	mu         sync.RWMutex
	complaints map[string]*models.Complaint
}

func NewInMemory() *InMemory {
	return &InMemory{complaints: make(map[string]*models.Complaint)}
}

func (s *InMemory) Create(_ context.Context, c *models.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.complaints[c.ID]; exists {
		return fmt.Errorf("complaint %s: %w", c.ID, sentinel.ErrAlreadyUsed)
	}
	s.complaints[c.ID] = clone(c)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (*models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.complaints[id]
	if !ok {
		return nil, fmt.Errorf("complaint not found: %w", sentinel.ErrNotFound)
	}
	return clone(c), nil
}

// List returns the complaints matching filter, newest first.
func (s *InMemory) List(_ context.Context, filter models.Filter) ([]*models.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Complaint, 0, len(s.complaints))
	for _, c := range s.complaints {
		if filter.Matches(c) {
			out = append(out, clone(c))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// Execute loads the complaint, runs validate and mutate on a copy and stores
// the result, all under the write lock. Nothing is written when validate fails.
func (s *InMemory) Execute(_ context.Context, id string, validate func(*models.Complaint) error, mutate func(*models.Complaint)) (*models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.complaints[id]
	if !ok {
		return nil, fmt.Errorf("complaint not found: %w", sentinel.ErrNotFound)
	}
	working := clone(existing)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	s.complaints[id] = working
	return clone(working), nil
}

func clone(c *models.Complaint) *models.Complaint {
	cp := *c
	cp.ImageRef = copyString(c.ImageRef)
	cp.AssignedDepartment = copyString(c.AssignedDepartment)
	cp.Remarks = copyString(c.Remarks)
	return &cp
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

func sortNewestFirst(list []*models.Complaint) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}
