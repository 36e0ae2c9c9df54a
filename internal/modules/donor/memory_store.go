package donor

import (
	"context"
	"strings"
	"sync"

	"lifelink/internal/types"
)

// MemoryStore keeps the directory in process memory. Safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	donors    map[types.ID]*Donor
	hospitals map[types.ID]*Hospital
	order     []types.ID
	hospOrder []types.ID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		donors:    make(map[types.ID]*Donor),
		hospitals: make(map[types.ID]*Hospital),
	}
}

func (s *MemoryStore) ListDonors(_ context.Context, f Filter) ([]*Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Donor, 0, len(s.order))
	for _, id := range s.order {
		d := s.donors[id]
		if f.match(d) {
			out = append(out, d.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStore) GetDonor(_ context.Context, id types.ID) (*Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.donors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d.Clone(), nil
}

func (s *MemoryStore) CreateDonor(_ context.Context, d *Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donors[d.ID]; ok {
		return ErrDuplicateIdentity
	}
	for _, existing := range s.donors {
		if strings.EqualFold(existing.Email, d.Email) {
			return ErrDuplicateIdentity
		}
	}
	s.donors[d.ID] = d.Clone()
	s.order = append(s.order, d.ID)
	return nil
}

func (s *MemoryStore) UpdateDonor(_ context.Context, id types.ID, fn func(*Donor) error) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.donors[id]
	if !ok {
		return false, nil
	}
	working := current.Clone()
	if err := fn(working); err != nil {
		return true, err
	}
	working.ID = id
	s.donors[id] = working
	return true, nil
}

func (s *MemoryStore) ListHospitals(_ context.Context) ([]*Hospital, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Hospital, 0, len(s.hospOrder))
	for _, id := range s.hospOrder {
		out = append(out, s.hospitals[id].Clone())
	}
	return out, nil
}

func (s *MemoryStore) GetHospital(_ context.Context, id types.ID) (*Hospital, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hospitals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return h.Clone(), nil
}

func (s *MemoryStore) CreateHospital(_ context.Context, h *Hospital) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hospitals[h.ID]; ok {
		return ErrDuplicateIdentity
	}
	for _, existing := range s.hospitals {
		if strings.EqualFold(existing.Email, h.Email) {
			return ErrDuplicateIdentity
		}
	}
	s.hospitals[h.ID] = h.Clone()
	s.hospOrder = append(s.hospOrder, h.ID)
	return nil
}
