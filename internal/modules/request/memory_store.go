package request

import (
	"context"
	"sort"
	"sync"
	"time"

	"lifelink/internal/types"
)

// MemoryStore keeps requests in process memory. Safe for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	requests map[types.ID]*Request
	events   []Event
	seq      int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{requests: make(map[types.ID]*Request)}
}

func (s *MemoryStore) Create(_ context.Context, r *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[r.ID]; ok {
		return ErrConflict
	}
	s.requests[r.ID] = r.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id types.ID) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context, hospitalID types.ID) ([]*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Request, 0, len(s.requests))
	for _, r := range s.requests {
		if hospitalID != "" && r.HospitalID != hospitalID {
			continue
		}
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id types.ID, from, to Status, version int, acc *Acceptance) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok || r.Status != from || r.StatusVersion != version {
		return false, nil
	}
	now := time.Now()
	r.Status = to
	r.StatusVersion++
	if acc != nil {
		donorID, name := acc.DonorID, acc.DonorName
		r.AcceptedBy = &donorID
		r.AcceptedByName = &name
	}
	switch to {
	case StatusAccepted:
		r.AcceptedAt = &now
	case StatusFulfilled:
		r.FulfilledAt = &now
	case StatusCancelled:
		r.CancelledAt = &now
	}
	return true, nil
}

func (s *MemoryStore) SetTracking(_ context.Context, id types.ID, t Tracking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return ErrNotFound
	}
	r.Tracking = &t
	return nil
}

func (s *MemoryStore) AppendEvent(_ context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	ev := *e
	ev.ID = s.seq
	s.events = append(s.events, ev)
	return nil
}

// Events returns the recorded transitions for one request in order.
func (s *MemoryStore) Events(id types.ID) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.RequestID == id {
			out = append(out, e)
		}
	}
	return out
}
