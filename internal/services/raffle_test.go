package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/secretsanta-backend/internal/platform/dbctx"
)

func TestRaffleService_JoinAndGet(t *testing.T) {
	h := newHarness(t)
	f := h.seed(t, 3)

	user := f.members[0].UserID
	if _, err := h.raffles.Join(as(user), f.raffle.ID, ProfileInput{DisplayName: "again"}); !errors.Is(err, ErrAlreadyMember) {
		t.Fatalf("Join twice: want=ErrAlreadyMember got=%v", err)
	}
	if _, err := h.raffles.Join(as(uuid.New()), f.raffle.ID, ProfileInput{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("Join without name: want=ErrValidation got=%v", err)
	}
	if _, err := h.raffles.Join(as(uuid.New()), f.raffle.ID, ProfileInput{DisplayName: "<script>x</script>"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("Join with script name: want=ErrValidation got=%v", err)
	}
	if _, err := h.raffles.Join(dbctx.New(context.Background()), f.raffle.ID, ProfileInput{DisplayName: "x"}); err == nil {
		t.Fatalf("Join unauthenticated: want error")
	}

	view, err := h.raffles.Get(f.as(0), f.raffle.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if view.IsOwner || view.MyMember == nil || view.MyMember.ID != f.members[0].ID || len(view.Members) != 3 {
		t.Fatalf("Get: unexpected view %+v", view)
	}
	if _, err := h.raffles.Get(as(uuid.New()), f.raffle.ID); !errors.Is(err, ErrNotMember) {
		t.Fatalf("Get by outsider: want=ErrNotMember got=%v", err)
	}
}

func TestRaffleService_NoMembershipChangesAfterDraw(t *testing.T) {
	h := newHarness(t)
	f := h.drawn(t, 3)

	if _, err := h.raffles.Join(as(uuid.New()), f.raffle.ID, ProfileInput{DisplayName: "late"}); !errors.Is(err, ErrAlreadyDrawn) {
		t.Fatalf("Join after draw: want=ErrAlreadyDrawn got=%v", err)
	}
	if err := h.raffles.Leave(f.as(0), f.raffle.ID); !errors.Is(err, ErrAlreadyDrawn) {
		t.Fatalf("Leave after draw: want=ErrAlreadyDrawn got=%v", err)
	}
}

func TestRaffleService_LeaveDropsExclusions(t *testing.T) {
	h := newHarness(t)
	f := h.seed(t, 4)
	if _, err := h.exclusions.Add(as(f.owner), f.raffle.ID, f.members[0].ID, f.members[1].ID); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := h.raffles.Leave(f.as(0), f.raffle.ID); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	list, err := h.exclusions.List(as(f.owner), f.raffle.ID)
	if err != nil || len(list) != 0 {
		t.Fatalf("List after leave: want empty got=%v err=%v", list, err)
	}
}

func TestRaffleService_DeleteResetsEverything(t *testing.T) {
	h := newHarness(t)
	f := h.drawn(t, 3)
	sess, err := h.relay.Authenticate(context.Background(), f.raffle.ID, h.token(t, f.members[0].UserID))
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if _, err := h.relay.Handle(context.Background(), sess, InboundFrame{Content: "hi", Role: "santa"}); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if err := h.raffles.Delete(f.as(0), f.raffle.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Delete by member: want=ErrForbidden got=%v", err)
	}
	if err := h.raffles.Delete(as(f.owner), f.raffle.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := h.raffles.Get(as(f.owner), f.raffle.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete: want=ErrNotFound got=%v", err)
	}
	if _, err := h.routing.GifteeOf(context.Background(), f.raffle.ID, f.members[0].ID); !errors.Is(err, ErrNotDrawnYet) {
		t.Fatalf("GifteeOf after delete: want=ErrNotDrawnYet got=%v", err)
	}
}

func TestCleanText(t *testing.T) {
	if _, err := cleanText("name", strings.Repeat("x", maxNameRunes+1), maxNameRunes, true); !errors.Is(err, ErrValidation) {
		t.Fatalf("cleanText too long: want=ErrValidation got=%v", err)
	}
	got, err := cleanText("name", "  Ana \x00 ", maxNameRunes, true)
	if err != nil || got != "Ana" {
		t.Fatalf("cleanText: want=%q got=%q err=%v", "Ana", got, err)
	}
}
