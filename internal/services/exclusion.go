package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/secretsanta-backend/internal/data/repos"
	"github.com/yungbote/secretsanta-backend/internal/data/repos/repoerr"
	types "github.com/yungbote/secretsanta-backend/internal/domain"
	"github.com/yungbote/secretsanta-backend/internal/modules/draw"
	"github.com/yungbote/secretsanta-backend/internal/platform/dbctx"
	"github.com/yungbote/secretsanta-backend/internal/platform/keylock"
	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
)

// ExclusionService manages the owner's "never pair these two" list. The list
// is frozen once the raffle is drawn.
type ExclusionService interface {
	List(dbc dbctx.Context, raffleID uuid.UUID) ([]*types.Exclusion, error)
	Add(dbc dbctx.Context, raffleID, memberA, memberB uuid.UUID) (*types.Exclusion, error)
	Remove(dbc dbctx.Context, raffleID, exclusionID uuid.UUID) error
}

type exclusionService struct {
	raffleAccess
	db         *gorm.DB
	log        *logger.Logger
	locks      keylock.Locker
	exclusions repos.ExclusionRepo
}

func NewExclusionService(
	db *gorm.DB,
	log *logger.Logger,
	locks keylock.Locker,
	raffleRepo repos.RaffleRepo,
	memberRepo repos.MemberRepo,
	exclusionRepo repos.ExclusionRepo,
) ExclusionService {
	return &exclusionService{
		raffleAccess: raffleAccess{raffles: raffleRepo, members: memberRepo},
		db:           db,
		log:          log.With("service", "ExclusionService"),
		locks:        locks,
		exclusions:   exclusionRepo,
	}
}

// loadExclusionSet builds the in-memory set for a raffle from storage.
func loadExclusionSet(dbc dbctx.Context, repo repos.ExclusionRepo, raffleID uuid.UUID) (*draw.ExclusionSet, error) {
	rows, err := repo.ListByRaffle(dbc, raffleID)
	if err != nil {
		return nil, err
	}
	set := draw.NewExclusionSet()
	for _, row := range rows {
		if err := set.Insert(draw.ExclusionPair{ID: row.ID, MemberA: row.MemberA, MemberB: row.MemberB}); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func (s *exclusionService) List(dbc dbctx.Context, raffleID uuid.UUID) ([]*types.Exclusion, error) {
	if _, _, err := s.owner(dbc, raffleID); err != nil {
		return nil, err
	}
	return s.exclusions.ListByRaffle(dbc, raffleID)
}

func (s *exclusionService) Add(dbc dbctx.Context, raffleID, memberA, memberB uuid.UUID) (*types.Exclusion, error) {
	if _, _, err := s.owner(dbc, raffleID); err != nil {
		return nil, err
	}
	if memberA == uuid.Nil || memberB == uuid.Nil {
		return nil, invalid("member_ids", "two member ids are required")
	}
	unlock, err := s.locks.Lock(dbc.Ctx, lockKey(raffleID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var out *types.Exclusion
	err = dbc.DB(s.db).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		r, err := s.raffles.LockByID(inner, raffleID)
		if errors.Is(err, repoerr.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		set, err := loadExclusionSet(inner, s.exclusions, raffleID)
		if err != nil {
			return err
		}
		if r.IsDrawn {
			set.Lock()
		}
		pair, err := set.Add(memberA, memberB)
		if err != nil {
			return err
		}
		for _, id := range []uuid.UUID{memberA, memberB} {
			if _, err := s.members.GetByID(inner, raffleID, id); err != nil {
				if errors.Is(err, repoerr.ErrNotFound) {
					return invalid("member_ids", "member is not in this raffle")
				}
				return err
			}
		}
		out, err = s.exclusions.Create(inner, &types.Exclusion{
			ID:        pair.ID,
			RaffleID:  raffleID,
			MemberA:   pair.MemberA,
			MemberB:   pair.MemberB,
			CreatedAt: time.Now().UTC(),
		})
		if errors.Is(err, repoerr.ErrConflict) {
			return ErrDuplicateExclusion
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Exclusion added", "raffle_id", raffleID, "exclusion_id", out.ID)
	return out, nil
}

func (s *exclusionService) Remove(dbc dbctx.Context, raffleID, exclusionID uuid.UUID) error {
	if _, _, err := s.owner(dbc, raffleID); err != nil {
		return err
	}
	unlock, err := s.locks.Lock(dbc.Ctx, lockKey(raffleID))
	if err != nil {
		return err
	}
	defer unlock()

	err = dbc.DB(s.db).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		r, err := s.raffles.LockByID(inner, raffleID)
		if errors.Is(err, repoerr.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		set, err := loadExclusionSet(inner, s.exclusions, raffleID)
		if err != nil {
			return err
		}
		if r.IsDrawn {
			set.Lock()
		}
		if err := set.Remove(exclusionID); err != nil {
			if errors.Is(err, draw.ErrExclusionNotFound) {
				return ErrNotFound
			}
			return err
		}
		return s.exclusions.Delete(inner, raffleID, exclusionID)
	})
	if err != nil {
		return err
	}
	s.log.Info("Exclusion removed", "raffle_id", raffleID, "exclusion_id", exclusionID)
	return nil
}
