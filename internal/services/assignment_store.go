package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/secretsanta-backend/internal/data/repos"
	"github.com/yungbote/secretsanta-backend/internal/data/repos/repoerr"
	types "github.com/yungbote/secretsanta-backend/internal/domain"
	"github.com/yungbote/secretsanta-backend/internal/modules/draw"
	"github.com/yungbote/secretsanta-backend/internal/platform/dbctx"
	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
)

// AssignmentStore persists a raffle's assignment exactly once.
type AssignmentStore interface {
	// Commit writes every giver -> receiver row and marks the raffle drawn in
	// one transaction. A second commit fails with ErrAlreadyDrawn and leaves
	// the first untouched.
	Commit(dbc dbctx.Context, raffleID uuid.UUID, assignment map[uuid.UUID]uuid.UUID, meta types.DrawMeta) error
	// Get returns the receiver assigned to memberID.
	Get(dbc dbctx.Context, raffleID, memberID uuid.UUID) (uuid.UUID, error)
	Exists(dbc dbctx.Context, raffleID uuid.UUID) (bool, error)
}

type assignmentStore struct {
	db          *gorm.DB
	log         *logger.Logger
	raffles     repos.RaffleRepo
	assignments repos.AssignmentRepo
}

func NewAssignmentStore(db *gorm.DB, log *logger.Logger, raffleRepo repos.RaffleRepo, assignmentRepo repos.AssignmentRepo) AssignmentStore {
	return &assignmentStore{
		db:          db,
		log:         log.With("service", "AssignmentStore"),
		raffles:     raffleRepo,
		assignments: assignmentRepo,
	}
}

func (s *assignmentStore) Commit(dbc dbctx.Context, raffleID uuid.UUID, assignment map[uuid.UUID]uuid.UUID, meta types.DrawMeta) error {
	givers := make([]uuid.UUID, 0, len(assignment))
	for g := range assignment {
		givers = append(givers, g)
	}
	if err := draw.ValidatePermutation(givers, nil, assignment); err != nil {
		return err
	}
	rawMeta, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	err = dbc.DB(s.db).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		r, err := s.raffles.LockByID(inner, raffleID)
		if errors.Is(err, repoerr.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if r.IsDrawn {
			return ErrAlreadyDrawn
		}
		if exists, err := s.assignments.Exists(inner, raffleID); err != nil {
			return err
		} else if exists {
			return ErrAlreadyDrawn
		}

		rows := make([]*types.Assignment, 0, len(assignment))
		for g, rcv := range assignment {
			rows = append(rows, &types.Assignment{
				ID:         uuid.New(),
				RaffleID:   raffleID,
				GiverID:    g,
				ReceiverID: rcv,
				CreatedAt:  now,
			})
		}
		if err := s.assignments.CreateBatch(inner, rows); err != nil {
			if errors.Is(err, repoerr.ErrConflict) {
				return ErrAlreadyDrawn
			}
			return err
		}
		if err := s.raffles.MarkDrawn(inner, raffleID, now, datatypes.JSON(rawMeta)); err != nil {
			if errors.Is(err, repoerr.ErrConflict) {
				return ErrAlreadyDrawn
			}
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit assignment: %w", err)
	}
	return nil
}

func (s *assignmentStore) Get(dbc dbctx.Context, raffleID, memberID uuid.UUID) (uuid.UUID, error) {
	a, err := s.assignments.GetByGiver(dbc, raffleID, memberID)
	if errors.Is(err, repoerr.ErrNotFound) {
		exists, xerr := s.assignments.Exists(dbc, raffleID)
		if xerr != nil {
			return uuid.Nil, xerr
		}
		if !exists {
			return uuid.Nil, ErrNotDrawnYet
		}
		return uuid.Nil, ErrNotMember
	}
	if err != nil {
		return uuid.Nil, err
	}
	return a.ReceiverID, nil
}

func (s *assignmentStore) Exists(dbc dbctx.Context, raffleID uuid.UUID) (bool, error) {
	r, err := s.raffles.GetByID(dbc, raffleID)
	if errors.Is(err, repoerr.ErrNotFound) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}
	return r.IsDrawn, nil
}
