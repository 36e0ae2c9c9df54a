package notification

import (
	"context"
	"sort"
	"sync"

	"lifelink/internal/types"
)

type MemoryStore struct {
	mu    sync.Mutex
	items map[types.ID]*Notification
	seq   map[types.ID]int
	next  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[types.ID]*Notification),
		seq:   make(map[types.ID]int),
	}
}

func (s *MemoryStore) Save(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[n.ID]; ok {
		return ErrDuplicate
	}
	s.items[n.ID] = n.Clone()
	s.next++
	s.seq[n.ID] = s.next
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id types.ID) (*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return n.Clone(), nil
}

// List orders newest first; equal timestamps fall back to insertion order,
// later first.
func (s *MemoryStore) List(_ context.Context, donorID types.ID) ([]*Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Notification, 0, len(s.items))
	for _, n := range s.items {
		if donorID != "" && n.DonorID != donorID {
			continue
		}
		out = append(out, n.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return s.seq[out[i].ID] > s.seq[out[j].ID]
	})
	return out, nil
}

func (s *MemoryStore) Respond(_ context.Context, id types.ID, to Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[id]
	if !ok || n.Status != StatusPending {
		return false, nil
	}
	n.Status = to
	return true, nil
}

func (s *MemoryStore) Reopen(_ context.Context, id types.ID, from Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[id]
	if !ok || n.Status != from {
		return false, nil
	}
	n.Status = StatusPending
	return true, nil
}

func (s *MemoryStore) MarkRead(_ context.Context, id types.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[id]
	if !ok {
		return false, nil
	}
	n.IsRead = true
	return true, nil
}
