package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/yungbote/secretsanta-backend/internal/data/repos"
	"github.com/yungbote/secretsanta-backend/internal/data/repos/repoerr"
	types "github.com/yungbote/secretsanta-backend/internal/domain"
	"github.com/yungbote/secretsanta-backend/internal/modules/draw"
	"github.com/yungbote/secretsanta-backend/internal/observability"
	"github.com/yungbote/secretsanta-backend/internal/platform/dbctx"
	"github.com/yungbote/secretsanta-backend/internal/platform/keylock"
	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
)

// MinDrawMembers is the smallest raffle the service will draw. The engine
// itself accepts two, but with two members each one knows the other's santa.
const MinDrawMembers = 3

var tracer = otel.Tracer("github.com/yungbote/secretsanta-backend/internal/services")

// MyAssignment is what a member sees about their giftee.
type MyAssignment struct {
	ReceiverID   uuid.UUID `json:"receiver_id"`
	ReceiverName string    `json:"receiver_name"`
	Wishlist     string    `json:"wishlist"`
}

type DrawService interface {
	// Draw runs the engine for raffleID and commits the result. Only the
	// owner may draw, and only once.
	Draw(dbc dbctx.Context, raffleID uuid.UUID) (*types.Raffle, error)
	GetMyAssignment(dbc dbctx.Context, raffleID uuid.UUID) (*MyAssignment, error)
}

type drawService struct {
	raffleAccess
	db         *gorm.DB
	log        *logger.Logger
	locks      keylock.Locker
	engine     *draw.Engine
	exclusions repos.ExclusionRepo
	store      AssignmentStore
	metrics    *observability.Metrics
}

func NewDrawService(
	db *gorm.DB,
	log *logger.Logger,
	locks keylock.Locker,
	engine *draw.Engine,
	raffleRepo repos.RaffleRepo,
	memberRepo repos.MemberRepo,
	exclusionRepo repos.ExclusionRepo,
	store AssignmentStore,
	metrics *observability.Metrics,
) DrawService {
	if engine == nil {
		engine = draw.NewEngine()
	}
	return &drawService{
		raffleAccess: raffleAccess{raffles: raffleRepo, members: memberRepo},
		db:           db,
		log:          log.With("service", "DrawService"),
		locks:        locks,
		engine:       engine,
		exclusions:   exclusionRepo,
		store:        store,
		metrics:      metrics,
	}
}

func (s *drawService) Draw(dbc dbctx.Context, raffleID uuid.UUID) (*types.Raffle, error) {
	if _, _, err := s.owner(dbc, raffleID); err != nil {
		return nil, err
	}
	unlock, err := s.locks.Lock(dbc.Ctx, lockKey(raffleID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Re-read under the lock; another instance may have drawn meanwhile.
	r, err := s.raffle(dbc, raffleID)
	if err != nil {
		return nil, err
	}
	if r.IsDrawn {
		return nil, ErrAlreadyDrawn
	}

	members, err := s.members.ListByRaffle(dbc, raffleID)
	if err != nil {
		return nil, err
	}
	if len(members) < MinDrawMembers {
		return nil, &MembershipError{Have: len(members), Need: MinDrawMembers}
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		if !m.ProfileComplete() {
			return nil, ErrProfilesIncomplete
		}
		ids = append(ids, m.ID)
	}
	set, err := loadExclusionSet(dbc, s.exclusions, raffleID)
	if err != nil {
		return nil, err
	}

	res, err := s.run(dbc, raffleID, ids, set)
	if err != nil {
		return nil, err
	}

	meta := types.DrawMeta{
		Members:    len(ids),
		Exclusions: set.Len(),
		Phase:      res.Phase,
		Attempts:   res.Attempts,
	}
	if err := s.store.Commit(dbc, raffleID, res.Assignment, meta); err != nil {
		if errors.Is(err, ErrAlreadyDrawn) {
			s.metrics.ObserveDraw(res.Phase, "already_drawn", 0)
		}
		return nil, err
	}
	set.Lock()

	out, err := s.raffles.GetByID(dbc, raffleID)
	if errors.Is(err, repoerr.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("Raffle drawn",
		"raffle_id", raffleID,
		"members", meta.Members,
		"exclusions", meta.Exclusions,
		"phase", meta.Phase,
		"attempts", meta.Attempts,
	)
	return out, nil
}

func (s *drawService) run(dbc dbctx.Context, raffleID uuid.UUID, ids []uuid.UUID, set *draw.ExclusionSet) (*draw.Result, error) {
	_, span := tracer.Start(dbc.Ctx, "draw.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("raffle.id", raffleID.String()),
		attribute.Int("raffle.members", len(ids)),
		attribute.Int("raffle.exclusions", set.Len()),
	)

	start := time.Now()
	res, err := s.engine.Run(ids, set)
	dur := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		outcome := "error"
		var inf *draw.InfeasibleError
		if errors.As(err, &inf) {
			outcome = "infeasible"
			s.log.Warn("Draw infeasible",
				"raffle_id", raffleID,
				"members", inf.Members,
				"exclusions", inf.Exclusions,
				"unmatched", inf.Unmatched,
			)
		}
		s.metrics.ObserveDraw("", outcome, dur)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("draw.phase", res.Phase),
		attribute.Int("draw.attempts", res.Attempts),
	)
	s.metrics.ObserveDraw(res.Phase, "ok", dur)
	return res, nil
}

func (s *drawService) GetMyAssignment(dbc dbctx.Context, raffleID uuid.UUID) (*MyAssignment, error) {
	r, me, err := s.member(dbc, raffleID)
	if err != nil {
		return nil, err
	}
	if !r.IsDrawn {
		return nil, ErrNotDrawnYet
	}
	receiverID, err := s.store.Get(dbc, raffleID, me.ID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.members.GetByID(dbc, raffleID, receiverID)
	if err != nil {
		return nil, err
	}
	return &MyAssignment{
		ReceiverID:   receiver.ID,
		ReceiverName: receiver.DisplayName,
		Wishlist:     receiver.Wishlist,
	}, nil
}
