package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/secretsanta-backend/internal/data/repos"
	"github.com/yungbote/secretsanta-backend/internal/data/repos/testutil"
	types "github.com/yungbote/secretsanta-backend/internal/domain"
	"github.com/yungbote/secretsanta-backend/internal/platform/dbctx"
)

var errDiskFull = errors.New("disk full")

// markFails lets every call through except MarkDrawn.
type markFails struct {
	repos.RaffleRepo
}

func (markFails) MarkDrawn(dbctx.Context, uuid.UUID, time.Time, datatypes.JSON) error {
	return errDiskFull
}

func rotation(f fixture) map[uuid.UUID]uuid.UUID {
	out := make(map[uuid.UUID]uuid.UUID, len(f.members))
	for i, m := range f.members {
		out[m.ID] = f.members[(i+1)%len(f.members)].ID
	}
	return out
}

func TestAssignmentStore_FailedCommitLeavesNothing(t *testing.T) {
	h := newHarness(t)
	f := h.seed(t, 4)
	log := testutil.Logger(t)

	raffleRepo := repos.NewRaffleRepo(h.db, log)
	assignmentRepo := repos.NewAssignmentRepo(h.db, log)
	store := NewAssignmentStore(h.db, log, markFails{raffleRepo}, assignmentRepo)

	dbc := dbctx.New(context.Background())
	err := store.Commit(dbc, f.raffle.ID, rotation(f), types.DrawMeta{})
	if !errors.Is(err, errDiskFull) {
		t.Fatalf("Commit: want=%v got=%v", errDiskFull, err)
	}

	rows, err := assignmentRepo.Exists(dbc, f.raffle.ID)
	if err != nil {
		t.Fatalf("AssignmentRepo.Exists: %v", err)
	}
	if rows {
		t.Fatalf("AssignmentRepo.Exists after failed commit: want=false got=true")
	}
	drawn, err := h.store.Exists(dbc, f.raffle.ID)
	if err != nil {
		t.Fatalf("AssignmentStore.Exists: %v", err)
	}
	if drawn {
		t.Fatalf("AssignmentStore.Exists after failed commit: want=false got=true")
	}
	if _, err := h.routing.GifteeOf(context.Background(), f.raffle.ID, f.members[0].ID); !errors.Is(err, ErrNotDrawnYet) {
		t.Fatalf("GifteeOf after failed commit: want=ErrNotDrawnYet got=%v", err)
	}

	// The raffle can still be drawn for real afterwards.
	if err := h.store.Commit(dbc, f.raffle.ID, rotation(f), types.DrawMeta{}); err != nil {
		t.Fatalf("Commit after failure: %v", err)
	}
	if err := h.store.Commit(dbc, f.raffle.ID, rotation(f), types.DrawMeta{}); !errors.Is(err, ErrAlreadyDrawn) {
		t.Fatalf("second Commit: want=ErrAlreadyDrawn got=%v", err)
	}
	got, err := h.store.Get(dbc, f.raffle.ID, f.members[0].ID)
	if err != nil || got != f.members[1].ID {
		t.Fatalf("Get: want=%s got=%s err=%v", f.members[1].ID, got, err)
	}
}
