package draw

import (
	"bytes"
	"sync"

	"github.com/google/uuid"
)

// ExclusionPair is one symmetric "never assign these two" constraint.
type ExclusionPair struct {
	ID      uuid.UUID
	MemberA uuid.UUID
	MemberB uuid.UUID
}

type pairKey [2]uuid.UUID

func keyOf(a, b uuid.UUID) pairKey {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return pairKey{a, b}
}

// ExclusionSet holds the exclusions of one raffle. Lookups are symmetric and
// O(1). Once locked every mutation fails with ErrLocked and leaves the set
// unchanged.
type ExclusionSet struct {
	mu     sync.RWMutex
	byKey  map[pairKey]uuid.UUID
	byID   map[uuid.UUID]ExclusionPair
	order  []uuid.UUID
	locked bool
}

func NewExclusionSet() *ExclusionSet {
	return &ExclusionSet{
		byKey: make(map[pairKey]uuid.UUID),
		byID:  make(map[uuid.UUID]ExclusionPair),
	}
}

// Add records a new pair under a fresh id.
func (s *ExclusionSet) Add(a, b uuid.UUID) (ExclusionPair, error) {
	return s.insert(ExclusionPair{ID: uuid.New(), MemberA: a, MemberB: b})
}

// Insert records a pair that already has an id, e.g. one loaded from storage.
func (s *ExclusionSet) Insert(p ExclusionPair) error {
	_, err := s.insert(p)
	return err
}

func (s *ExclusionSet) insert(p ExclusionPair) (ExclusionPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked {
		return ExclusionPair{}, ErrLocked
	}
	if p.MemberA == p.MemberB {
		return ExclusionPair{}, ErrSelfExclusion
	}
	k := keyOf(p.MemberA, p.MemberB)
	if _, ok := s.byKey[k]; ok {
		return ExclusionPair{}, ErrDuplicateExclusion
	}
	if _, ok := s.byID[p.ID]; ok {
		return ExclusionPair{}, ErrDuplicateExclusion
	}
	s.byKey[k] = p.ID
	s.byID[p.ID] = p
	s.order = append(s.order, p.ID)
	return p, nil
}

func (s *ExclusionSet) Remove(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked {
		return ErrLocked
	}
	p, ok := s.byID[id]
	if !ok {
		return ErrExclusionNotFound
	}
	delete(s.byID, id)
	delete(s.byKey, keyOf(p.MemberA, p.MemberB))
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *ExclusionSet) Contains(a, b uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byKey[keyOf(a, b)]
	return ok
}

// All returns the pairs in insertion order.
func (s *ExclusionSet) All() []ExclusionPair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ExclusionPair, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

func (s *ExclusionSet) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *ExclusionSet) Lock() {
	s.mu.Lock()
	s.locked = true
	s.mu.Unlock()
}

func (s *ExclusionSet) Locked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locked
}
