package services

import (
	"errors"

	"github.com/google/uuid"

	"github.com/yungbote/secretsanta-backend/internal/data/repos"
	"github.com/yungbote/secretsanta-backend/internal/data/repos/repoerr"
	types "github.com/yungbote/secretsanta-backend/internal/domain"
	"github.com/yungbote/secretsanta-backend/internal/platform/dbctx"
)

// raffleAccess resolves the caller against a raffle. Services embed it.
type raffleAccess struct {
	raffles repos.RaffleRepo
	members repos.MemberRepo
}

func (a raffleAccess) raffle(dbc dbctx.Context, raffleID uuid.UUID) (*types.Raffle, error) {
	if raffleID == uuid.Nil {
		return nil, invalid("raffle_id", "missing")
	}
	r, err := a.raffles.GetByID(dbc, raffleID)
	if errors.Is(err, repoerr.ErrNotFound) {
		return nil, ErrNotFound
	}
	return r, err
}

// owner returns the raffle if the caller owns it.
func (a raffleAccess) owner(dbc dbctx.Context, raffleID uuid.UUID) (*types.Raffle, uuid.UUID, error) {
	actor, err := actorFrom(dbc.Ctx)
	if err != nil {
		return nil, uuid.Nil, err
	}
	r, err := a.raffle(dbc, raffleID)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if r.OwnerUserID != actor {
		return nil, uuid.Nil, ErrForbidden
	}
	return r, actor, nil
}

// member returns the raffle and the caller's membership in it.
func (a raffleAccess) member(dbc dbctx.Context, raffleID uuid.UUID) (*types.Raffle, *types.Member, error) {
	actor, err := actorFrom(dbc.Ctx)
	if err != nil {
		return nil, nil, err
	}
	r, err := a.raffle(dbc, raffleID)
	if err != nil {
		return nil, nil, err
	}
	m, err := a.members.GetByRaffleAndUser(dbc, raffleID, actor)
	if errors.Is(err, repoerr.ErrNotFound) {
		return r, nil, ErrNotMember
	}
	if err != nil {
		return nil, nil, err
	}
	return r, m, nil
}

func lockKey(raffleID uuid.UUID) string { return "raffle:" + raffleID.String() }
