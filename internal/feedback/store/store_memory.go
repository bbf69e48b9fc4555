package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cityconnect/internal/feedback/models"
	"cityconnect/pkg/platform/sentinel"
)

// InMemory stores feedback entries in memory.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string]*models.Feedback
}

func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[string]*models.Feedback)}
}

func (s *InMemory) Create(_ context.Context, fb *models.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[fb.ID]; exists {
		return fmt.Errorf("feedback %s: %w", fb.ID, sentinel.ErrAlreadyUsed)
	}
	cp := *fb
	s.entries[fb.ID] = &cp
	return nil
}

// List returns the feedback matching filter, newest first.
func (s *InMemory) List(_ context.Context, filter models.Filter) ([]*models.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Feedback, 0, len(s.entries))
	for _, fb := range s.entries {
		if filter.Matches(fb) {
			cp := *fb
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
