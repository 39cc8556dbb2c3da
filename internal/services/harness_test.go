package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/secretsanta-backend/internal/data/repos"
	"github.com/yungbote/secretsanta-backend/internal/data/repos/testutil"
	types "github.com/yungbote/secretsanta-backend/internal/domain"
	"github.com/yungbote/secretsanta-backend/internal/modules/draw"
	"github.com/yungbote/secretsanta-backend/internal/observability"
	"github.com/yungbote/secretsanta-backend/internal/platform/ctxutil"
	"github.com/yungbote/secretsanta-backend/internal/platform/dbctx"
	"github.com/yungbote/secretsanta-backend/internal/platform/keylock"
	"github.com/yungbote/secretsanta-backend/internal/platform/sealbox"
	"github.com/yungbote/secretsanta-backend/internal/realtime"
)

// captureEmitter records every envelope by channel.
type captureEmitter struct {
	mu  sync.Mutex
	got map[string][]realtime.Envelope
}

func (c *captureEmitter) Emit(ctx context.Context, env realtime.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.got == nil {
		c.got = map[string][]realtime.Envelope{}
	}
	c.got[env.Channel] = append(c.got[env.Channel], env)
	return nil
}

func (c *captureEmitter) views(t *testing.T, raffleID, memberID uuid.UUID) []MessageView {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []MessageView
	for _, env := range c.got[realtime.MemberChannel(raffleID, memberID)] {
		var v MessageView
		if err := json.Unmarshal(env.Data, &v); err != nil {
			t.Fatalf("decode pushed frame: %v", err)
		}
		out = append(out, v)
	}
	return out
}

type harness struct {
	db         *gorm.DB
	auth       AuthService
	raffles    RaffleService
	exclusions ExclusionService
	draws      DrawService
	store      AssignmentStore
	routing    RoutingTable
	chat       ChatService
	relay      *Relay
	emitter    *captureEmitter
	pseudonyms *Pseudonyms
	metrics    *observability.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	raffleRepo := repos.NewRaffleRepo(db, log)
	memberRepo := repos.NewMemberRepo(db, log)
	exclusionRepo := repos.NewExclusionRepo(db, log)
	assignmentRepo := repos.NewAssignmentRepo(db, log)
	messageRepo := repos.NewChatMessageRepo(db, log)

	box, err := sealbox.New(make([]byte, 32))
	if err != nil {
		t.Fatalf("sealbox.New: %v", err)
	}
	pseudonyms, err := NewPseudonyms([]byte("test pseudonym secret"))
	if err != nil {
		t.Fatalf("NewPseudonyms: %v", err)
	}
	locks := keylock.NewLocal()
	metrics := observability.NewMetrics(observability.MetricsConfig{Enabled: true})
	routing := NewRoutingTable(log, assignmentRepo)
	store := NewAssignmentStore(db, log, raffleRepo, assignmentRepo)
	auth := NewAuthService(log, "test-secret", time.Hour)
	emitter := &captureEmitter{}

	return &harness{
		db:         db,
		auth:       auth,
		raffles:    NewRaffleService(db, log, locks, raffleRepo, memberRepo, exclusionRepo, assignmentRepo, messageRepo, routing),
		exclusions: NewExclusionService(db, log, locks, raffleRepo, memberRepo, exclusionRepo),
		draws:      NewDrawService(db, log, locks, draw.NewEngine(), raffleRepo, memberRepo, exclusionRepo, store, metrics),
		store:      store,
		routing:    routing,
		chat:       NewChatService(log, raffleRepo, memberRepo, messageRepo, routing, box, pseudonyms),
		relay:      NewRelay(log, RelayConfig{}, auth, raffleRepo, memberRepo, messageRepo, routing, box, pseudonyms, emitter, metrics),
		emitter:    emitter,
		pseudonyms: pseudonyms,
		metrics:    metrics,
	}
}

// as returns a request context authenticated as userID.
func as(userID uuid.UUID) dbctx.Context {
	return dbctx.New(ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: userID}))
}

type fixture struct {
	owner   uuid.UUID
	raffle  *types.Raffle
	members []*types.Member
}

// member returns the context of the i-th member.
func (f fixture) as(i int) dbctx.Context { return as(f.members[i].UserID) }

func (h *harness) seed(t *testing.T, n int) fixture {
	t.Helper()
	f := fixture{owner: uuid.New()}
	r, err := h.raffles.Create(as(f.owner), "office party")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.raffle = r
	for i := 0; i < n; i++ {
		m, err := h.raffles.Join(as(uuid.New()), r.ID, ProfileInput{DisplayName: "member", Wishlist: "socks"})
		if err != nil {
			t.Fatalf("Join: %v", err)
		}
		f.members = append(f.members, m)
	}
	return f
}

func (h *harness) drawn(t *testing.T, n int) fixture {
	t.Helper()
	f := h.seed(t, n)
	if _, err := h.draws.Draw(as(f.owner), f.raffle.ID); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	return f
}

func (h *harness) token(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	tok, err := h.auth.IssueToken(userID)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return tok
}

// giftee returns the receiver of member i.
func (h *harness) giftee(t *testing.T, f fixture, i int) uuid.UUID {
	t.Helper()
	g, err := h.routing.GifteeOf(context.Background(), f.raffle.ID, f.members[i].ID)
	if err != nil {
		t.Fatalf("GifteeOf: %v", err)
	}
	return g
}

func (f fixture) index(id uuid.UUID) int {
	for i, m := range f.members {
		if m.ID == id {
			return i
		}
	}
	return -1
}
