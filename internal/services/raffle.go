package services

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/secretsanta-backend/internal/data/repos"
	"github.com/yungbote/secretsanta-backend/internal/data/repos/repoerr"
	types "github.com/yungbote/secretsanta-backend/internal/domain"
	"github.com/yungbote/secretsanta-backend/internal/platform/contentcheck"
	"github.com/yungbote/secretsanta-backend/internal/platform/dbctx"
	"github.com/yungbote/secretsanta-backend/internal/platform/keylock"
	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
)

const (
	maxNameRunes     = 100
	maxWishlistRunes = 5000
)

type MemberView struct {
	ID              uuid.UUID `json:"id"`
	DisplayName     string    `json:"display_name"`
	ProfileComplete bool      `json:"profile_complete"`
}

type RaffleView struct {
	*types.Raffle
	IsOwner  bool          `json:"is_owner"`
	MyMember *types.Member `json:"my_member,omitempty"`
	Members  []MemberView  `json:"members"`
}

type ProfileInput struct {
	DisplayName string `json:"display_name"`
	Wishlist    string `json:"wishlist"`
}

// RaffleService covers the raffle lifecycle around the draw: creation,
// membership and deletion. Deleting a raffle is the only way to undo a draw.
type RaffleService interface {
	Create(dbc dbctx.Context, name string) (*types.Raffle, error)
	Get(dbc dbctx.Context, raffleID uuid.UUID) (*RaffleView, error)
	Join(dbc dbctx.Context, raffleID uuid.UUID, in ProfileInput) (*types.Member, error)
	UpdateMyProfile(dbc dbctx.Context, raffleID uuid.UUID, in ProfileInput) (*types.Member, error)
	Leave(dbc dbctx.Context, raffleID uuid.UUID) error
	Delete(dbc dbctx.Context, raffleID uuid.UUID) error
}

type raffleService struct {
	raffleAccess
	db          *gorm.DB
	log         *logger.Logger
	locks       keylock.Locker
	exclusions  repos.ExclusionRepo
	assignments repos.AssignmentRepo
	messages    repos.ChatMessageRepo
	routing     RoutingTable
}

func NewRaffleService(
	db *gorm.DB,
	log *logger.Logger,
	locks keylock.Locker,
	raffleRepo repos.RaffleRepo,
	memberRepo repos.MemberRepo,
	exclusionRepo repos.ExclusionRepo,
	assignmentRepo repos.AssignmentRepo,
	messageRepo repos.ChatMessageRepo,
	routing RoutingTable,
) RaffleService {
	return &raffleService{
		raffleAccess: raffleAccess{raffles: raffleRepo, members: memberRepo},
		db:           db,
		log:          log.With("service", "RaffleService"),
		locks:        locks,
		exclusions:   exclusionRepo,
		assignments:  assignmentRepo,
		messages:     messageRepo,
		routing:      routing,
	}
}

func cleanText(field, s string, maxRunes int, required bool) (string, error) {
	s = contentcheck.Sanitize(s)
	if s == "" {
		if required {
			return "", invalid(field, "required")
		}
		return "", nil
	}
	if utf8.RuneCountInString(s) > maxRunes {
		return "", invalid(field, "too long")
	}
	if err := contentcheck.Validate(s, maxRunes); err != nil {
		return "", &ValidationError{Field: field, Reason: err.Error(), Err: err}
	}
	return s, nil
}

func (s *raffleService) Create(dbc dbctx.Context, name string) (*types.Raffle, error) {
	actor, err := actorFrom(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	name, err = cleanText("name", name, maxNameRunes, true)
	if err != nil {
		return nil, err
	}
	r, err := s.raffles.Create(dbc, &types.Raffle{
		ID:          uuid.New(),
		OwnerUserID: actor,
		Name:        name,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Raffle created", "raffle_id", r.ID, "user_id", actor)
	return r, nil
}

func (s *raffleService) Get(dbc dbctx.Context, raffleID uuid.UUID) (*RaffleView, error) {
	actor, err := actorFrom(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	r, err := s.raffle(dbc, raffleID)
	if err != nil {
		return nil, err
	}
	members, err := s.members.ListByRaffle(dbc, raffleID)
	if err != nil {
		return nil, err
	}
	view := &RaffleView{Raffle: r, IsOwner: r.OwnerUserID == actor, Members: make([]MemberView, 0, len(members))}
	for _, m := range members {
		if m.UserID == actor {
			view.MyMember = m
		}
		view.Members = append(view.Members, MemberView{ID: m.ID, DisplayName: m.DisplayName, ProfileComplete: m.ProfileComplete()})
	}
	if !view.IsOwner && view.MyMember == nil {
		return nil, ErrNotMember
	}
	return view, nil
}

func (s *raffleService) Join(dbc dbctx.Context, raffleID uuid.UUID, in ProfileInput) (*types.Member, error) {
	actor, err := actorFrom(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	name, err := cleanText("display_name", in.DisplayName, maxNameRunes, true)
	if err != nil {
		return nil, err
	}
	wishlist, err := cleanText("wishlist", in.Wishlist, maxWishlistRunes, false)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(dbc.Ctx, lockKey(raffleID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var out *types.Member
	err = dbc.DB(s.db).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		r, err := s.raffles.LockByID(inner, raffleID)
		if errors.Is(err, repoerr.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		// The committed permutation covers exactly the members at draw time.
		if r.IsDrawn {
			return ErrAlreadyDrawn
		}
		out, err = s.members.Create(inner, &types.Member{
			ID:          uuid.New(),
			RaffleID:    raffleID,
			UserID:      actor,
			DisplayName: name,
			Wishlist:    wishlist,
		})
		if errors.Is(err, repoerr.ErrConflict) {
			return ErrAlreadyMember
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Member joined", "raffle_id", raffleID, "member_id", out.ID)
	return out, nil
}

func (s *raffleService) UpdateMyProfile(dbc dbctx.Context, raffleID uuid.UUID, in ProfileInput) (*types.Member, error) {
	_, me, err := s.member(dbc, raffleID)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if strings.TrimSpace(in.DisplayName) != "" {
		name, err := cleanText("display_name", in.DisplayName, maxNameRunes, true)
		if err != nil {
			return nil, err
		}
		updates["display_name"] = name
		me.DisplayName = name
	}
	wishlist, err := cleanText("wishlist", in.Wishlist, maxWishlistRunes, false)
	if err != nil {
		return nil, err
	}
	updates["wishlist"] = wishlist
	me.Wishlist = wishlist
	if err := s.members.UpdateFields(dbc, me.ID, updates); err != nil {
		return nil, err
	}
	return me, nil
}

func (s *raffleService) Leave(dbc dbctx.Context, raffleID uuid.UUID) error {
	_, me, err := s.member(dbc, raffleID)
	if err != nil {
		return err
	}
	unlock, err := s.locks.Lock(dbc.Ctx, lockKey(raffleID))
	if err != nil {
		return err
	}
	defer unlock()

	return dbc.DB(s.db).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		r, err := s.raffles.LockByID(inner, raffleID)
		if err != nil {
			return err
		}
		if r.IsDrawn {
			return ErrAlreadyDrawn
		}
		if _, err := s.exclusions.DeleteByMember(inner, raffleID, me.ID); err != nil {
			return err
		}
		return s.members.Delete(inner, raffleID, me.ID)
	})
}

func (s *raffleService) Delete(dbc dbctx.Context, raffleID uuid.UUID) error {
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
		if _, err := s.raffles.LockByID(inner, raffleID); err != nil {
			return err
		}
		if err := s.messages.DeleteByRaffle(inner, raffleID); err != nil {
			return err
		}
		if err := s.assignments.DeleteByRaffle(inner, raffleID); err != nil {
			return err
		}
		if err := s.exclusions.DeleteByRaffle(inner, raffleID); err != nil {
			return err
		}
		if err := s.members.DeleteByRaffle(inner, raffleID); err != nil {
			return err
		}
		return s.raffles.Delete(inner, raffleID)
	})
	if err != nil {
		return err
	}
	s.routing.Invalidate(raffleID)
	s.log.Info("Raffle deleted", "raffle_id", raffleID)
	return nil
}
