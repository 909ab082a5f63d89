package memory

import (
	"delivery-dispatch-sim/internal/domain"
	"errors"
	"fmt"
	"sync"
)

var ErrDuplicateParcel = errors.New("duplicate parcel id")

// ParcelStore keeps the day's parcels in memory, keyed by id, and remembers
// insertion order for enumeration.
type ParcelStore struct {
	mu    sync.RWMutex
	byID  map[int]*domain.Parcel
	order []*domain.Parcel
}

func NewParcelStore() *ParcelStore {
	return &ParcelStore{byID: make(map[int]*domain.Parcel)}
}

// NewParcelStoreFrom loads parcels in the given order.
func NewParcelStoreFrom(parcels []*domain.Parcel) (*ParcelStore, error) {
	s := NewParcelStore()
	for _, p := range parcels {
		if err := s.Insert(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *ParcelStore) Insert(p *domain.Parcel) error {
	if p == nil {
		return errors.New("insert parcel: parcel is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[p.ID]; ok {
		return fmt.Errorf("insert parcel %d: %w", p.ID, ErrDuplicateParcel)
	}
	s.byID[p.ID] = p
	s.order = append(s.order, p)
	return nil
}

func (s *ParcelStore) Get(id int) (*domain.Parcel, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	return p, ok
}

// All returns a copy of the parcel list; the parcels themselves are shared.
func (s *ParcelStore) All() []*domain.Parcel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Parcel, len(s.order))
	copy(out, s.order)
	return out
}

func (s *ParcelStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
