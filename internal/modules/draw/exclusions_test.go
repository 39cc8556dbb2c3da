package draw

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestExclusionSet_AddIsSymmetric(t *testing.T) {
	s := NewExclusionSet()
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	p, err := s.Add(a, b)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Fatalf("Add: want generated id")
	}
	if !s.Contains(a, b) || !s.Contains(b, a) {
		t.Fatalf("Contains: want symmetric membership")
	}
	if s.Contains(a, c) {
		t.Fatalf("Contains(a,c): want false")
	}
	if _, err := s.Add(b, a); !errors.Is(err, ErrDuplicateExclusion) {
		t.Fatalf("Add(b,a): want=ErrDuplicateExclusion got=%v", err)
	}
	if _, err := s.Add(c, c); !errors.Is(err, ErrSelfExclusion) {
		t.Fatalf("Add(c,c): want=ErrSelfExclusion got=%v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len: want=1 got=%d", s.Len())
	}
}

func TestExclusionSet_RemoveAndOrder(t *testing.T) {
	s := NewExclusionSet()
	ids := make([]uuid.UUID, 0, 3)
	for i := 0; i < 3; i++ {
		p, err := s.Add(uuid.New(), uuid.New())
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		ids = append(ids, p.ID)
	}
	if err := s.Remove(ids[1]); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	all := s.All()
	if len(all) != 2 || all[0].ID != ids[0] || all[1].ID != ids[2] {
		t.Fatalf("All: want insertion order without removed id, got=%v", all)
	}
	if err := s.Remove(ids[1]); !errors.Is(err, ErrExclusionNotFound) {
		t.Fatalf("Remove twice: want=ErrExclusionNotFound got=%v", err)
	}
}

func TestExclusionSet_InsertKeepsID(t *testing.T) {
	s := NewExclusionSet()
	p := ExclusionPair{ID: uuid.New(), MemberA: uuid.New(), MemberB: uuid.New()}
	if err := s.Insert(p); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	got := s.All()
	if len(got) != 1 || got[0] != p {
		t.Fatalf("All: want=[%v] got=%v", p, got)
	}
}

func TestExclusionSet_LockedRejectsMutation(t *testing.T) {
	s := NewExclusionSet()
	a, b := uuid.New(), uuid.New()
	p, _ := s.Add(a, b)
	s.Lock()
	if !s.Locked() {
		t.Fatalf("Locked: want true")
	}
	if _, err := s.Add(uuid.New(), uuid.New()); !errors.Is(err, ErrLocked) {
		t.Fatalf("Add after Lock: want=ErrLocked got=%v", err)
	}
	if err := s.Remove(p.ID); !errors.Is(err, ErrLocked) {
		t.Fatalf("Remove after Lock: want=ErrLocked got=%v", err)
	}
	if s.Len() != 1 || !s.Contains(a, b) {
		t.Fatalf("locked set changed")
	}
}
