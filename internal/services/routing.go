package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/secretsanta-backend/internal/data/repos"
	types "github.com/yungbote/secretsanta-backend/internal/domain"
	"github.com/yungbote/secretsanta-backend/internal/platform/dbctx"
	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
)

// Route names the two ends of one conversation.
type Route struct {
	SantaID  uuid.UUID
	GifteeID uuid.UUID
}

// RoutingTable answers "who is my santa" and "who is my giftee" for a drawn
// raffle. Before the draw every lookup fails with ErrNotDrawnYet.
type RoutingTable interface {
	GifteeOf(ctx context.Context, raffleID, memberID uuid.UUID) (uuid.UUID, error)
	SantaOf(ctx context.Context, raffleID, memberID uuid.UUID) (uuid.UUID, error)
	// Counterpart resolves the conversation member takes part in as role.
	Counterpart(ctx context.Context, raffleID, memberID uuid.UUID, role types.ChatRole) (Route, error)
	Invalidate(raffleID uuid.UUID)
}

type routeTable struct {
	giftee map[uuid.UUID]uuid.UUID
	santa  map[uuid.UUID]uuid.UUID
}

// A committed assignment never changes, so a loaded table stays valid until
// the raffle is deleted.
type routingTable struct {
	log         *logger.Logger
	assignments repos.AssignmentRepo

	mu     sync.RWMutex
	tables map[uuid.UUID]*routeTable
	group  singleflight.Group
}

func NewRoutingTable(log *logger.Logger, assignmentRepo repos.AssignmentRepo) RoutingTable {
	return &routingTable{
		log:         log.With("service", "RoutingTable"),
		assignments: assignmentRepo,
		tables:      make(map[uuid.UUID]*routeTable),
	}
}

func (rt *routingTable) table(ctx context.Context, raffleID uuid.UUID) (*routeTable, error) {
	rt.mu.RLock()
	t, ok := rt.tables[raffleID]
	rt.mu.RUnlock()
	if ok {
		return t, nil
	}

	v, err, _ := rt.group.Do(raffleID.String(), func() (interface{}, error) {
		rows, err := rt.assignments.ListByRaffle(dbctx.Context{Ctx: context.WithoutCancel(ctx)}, raffleID)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, ErrNotDrawnYet
		}
		t := &routeTable{
			giftee: make(map[uuid.UUID]uuid.UUID, len(rows)),
			santa:  make(map[uuid.UUID]uuid.UUID, len(rows)),
		}
		for _, a := range rows {
			t.giftee[a.GiverID] = a.ReceiverID
			t.santa[a.ReceiverID] = a.GiverID
		}
		rt.mu.Lock()
		rt.tables[raffleID] = t
		rt.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*routeTable), nil
}

func (rt *routingTable) GifteeOf(ctx context.Context, raffleID, memberID uuid.UUID) (uuid.UUID, error) {
	t, err := rt.table(ctx, raffleID)
	if err != nil {
		return uuid.Nil, err
	}
	g, ok := t.giftee[memberID]
	if !ok {
		return uuid.Nil, ErrNotMember
	}
	return g, nil
}

func (rt *routingTable) SantaOf(ctx context.Context, raffleID, memberID uuid.UUID) (uuid.UUID, error) {
	t, err := rt.table(ctx, raffleID)
	if err != nil {
		return uuid.Nil, err
	}
	s, ok := t.santa[memberID]
	if !ok {
		return uuid.Nil, ErrNotMember
	}
	return s, nil
}

func (rt *routingTable) Counterpart(ctx context.Context, raffleID, memberID uuid.UUID, role types.ChatRole) (Route, error) {
	switch role {
	case types.ChatRoleSanta:
		g, err := rt.GifteeOf(ctx, raffleID, memberID)
		if err != nil {
			return Route{}, err
		}
		return Route{SantaID: memberID, GifteeID: g}, nil
	case types.ChatRoleGiftee:
		s, err := rt.SantaOf(ctx, raffleID, memberID)
		if err != nil {
			return Route{}, err
		}
		return Route{SantaID: s, GifteeID: memberID}, nil
	default:
		return Route{}, invalid("role", "must be santa or giftee")
	}
}

func (rt *routingTable) Invalidate(raffleID uuid.UUID) {
	rt.mu.Lock()
	delete(rt.tables, raffleID)
	rt.mu.Unlock()
	rt.group.Forget(raffleID.String())
}
