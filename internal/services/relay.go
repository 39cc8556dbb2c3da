package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/secretsanta-backend/internal/data/repos"
	"github.com/yungbote/secretsanta-backend/internal/data/repos/repoerr"
	types "github.com/yungbote/secretsanta-backend/internal/domain"
	"github.com/yungbote/secretsanta-backend/internal/observability"
	"github.com/yungbote/secretsanta-backend/internal/platform/contentcheck"
	"github.com/yungbote/secretsanta-backend/internal/platform/ctxutil"
	"github.com/yungbote/secretsanta-backend/internal/platform/dbctx"
	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
	"github.com/yungbote/secretsanta-backend/internal/platform/sealbox"
	"github.com/yungbote/secretsanta-backend/internal/realtime"
)

const maxClientIDLen = 128

// messageNamespace scopes client-derived message ids.
var messageNamespace = uuid.MustParse("6f1c1f0e-4b7a-5d2e-9a51-3c8e2d7b9f40")

// Session is one authenticated relay connection.
type Session struct {
	RaffleID uuid.UUID
	MemberID uuid.UUID
	UserID   uuid.UUID
}

// InboundFrame is what a client writes on the relay socket. ClientID is
// optional; when set, resending the same frame never creates a second
// message.
type InboundFrame struct {
	Content  string         `json:"content"`
	Role     types.ChatRole `json:"role"`
	ClientID string         `json:"clientId,omitempty"`
}

type ErrorFrame struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RelayConfig struct {
	MaxMessageRunes int
}

// Relay is the server side of the anonymous chat. It only ever delivers a
// message to the two members of its conversation.
type Relay struct {
	log      *logger.Logger
	auth     AuthService
	access   raffleAccess
	messages repos.ChatMessageRepo
	routing  RoutingTable
	box      *sealbox.Box
	views    messageViews
	emitter  realtime.Emitter
	metrics  *observability.Metrics
	maxRunes int
	now      func() time.Time
}

func NewRelay(
	log *logger.Logger,
	cfg RelayConfig,
	auth AuthService,
	raffleRepo repos.RaffleRepo,
	memberRepo repos.MemberRepo,
	messageRepo repos.ChatMessageRepo,
	routing RoutingTable,
	box *sealbox.Box,
	pseudonyms *Pseudonyms,
	emitter realtime.Emitter,
	metrics *observability.Metrics,
) *Relay {
	maxRunes := cfg.MaxMessageRunes
	if maxRunes <= 0 {
		maxRunes = contentcheck.DefaultMaxRunes
	}
	return &Relay{
		log:      log.With("service", "Relay"),
		auth:     auth,
		access:   raffleAccess{raffles: raffleRepo, members: memberRepo},
		messages: messageRepo,
		routing:  routing,
		box:      box,
		views:    messageViews{box: box, pseudonyms: pseudonyms},
		emitter:  emitter,
		metrics:  metrics,
		maxRunes: maxRunes,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Authenticate resolves credential to the caller's membership in raffleID.
// Any failure to resolve the credential is ErrUnauthenticated.
func (r *Relay) Authenticate(ctx context.Context, raffleID uuid.UUID, credential string) (*Session, error) {
	ctx, err := r.auth.SetContextFromToken(ctxutil.Default(ctx), credential)
	if err != nil {
		return nil, err
	}
	_, me, err := r.access.member(dbctx.New(ctx), raffleID)
	if errors.Is(err, ErrNotMember) {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if err != nil {
		return nil, err
	}
	return &Session{RaffleID: raffleID, MemberID: me.ID, UserID: me.UserID}, nil
}

func (r *Relay) messageID(sess *Session, in InboundFrame) uuid.UUID {
	if in.ClientID == "" {
		return uuid.New()
	}
	name := strings.Join([]string{sess.RaffleID.String(), sess.MemberID.String(), string(in.Role), in.ClientID}, "|")
	return uuid.NewSHA1(messageNamespace, []byte(name))
}

// Handle persists one inbound frame and pushes it to both ends of its
// conversation. A resent frame with the same ClientID is pushed again but
// stored once; clients drop it by id.
func (r *Relay) Handle(ctx context.Context, sess *Session, in InboundFrame) (*MessageView, error) {
	if sess == nil {
		return nil, ErrUnauthenticated
	}
	if !in.Role.Valid() {
		r.metrics.IncRelayed("rejected")
		return nil, invalid("role", "must be santa or giftee")
	}
	if len(in.ClientID) > maxClientIDLen {
		r.metrics.IncRelayed("rejected")
		return nil, invalid("clientId", "too long")
	}
	content := contentcheck.Sanitize(in.Content)
	if err := contentcheck.Validate(content, r.maxRunes); err != nil {
		r.metrics.IncRelayed("rejected")
		var cerr *contentcheck.Error
		if errors.As(err, &cerr) {
			return nil, &ValidationError{Field: "content", Reason: string(cerr.Reason), Err: err}
		}
		return nil, &ValidationError{Field: "content", Reason: err.Error(), Err: err}
	}

	route, err := r.routing.Counterpart(ctx, sess.RaffleID, sess.MemberID, in.Role)
	if err != nil {
		return nil, err
	}

	sealed, err := r.box.Seal(content)
	if err != nil {
		return nil, err
	}
	row := &types.ChatMessage{
		ID:         r.messageID(sess, in),
		RaffleID:   sess.RaffleID,
		SantaID:    route.SantaID,
		GifteeID:   route.GifteeID,
		SenderRole: in.Role,
		Content:    sealed,
		CreatedAt:  r.now(),
	}
	stored, created, err := r.messages.CreateIdempotent(dbctx.New(ctx), row)
	if err != nil {
		return nil, err
	}
	if !created {
		// A deterministic id can only collide with a message from the same
		// sender; anything else means the id space was abused.
		if stored.RaffleID != row.RaffleID || stored.SantaID != row.SantaID ||
			stored.GifteeID != row.GifteeID || stored.SenderRole != row.SenderRole {
			r.metrics.IncRelayed("rejected")
			return nil, invalid("clientId", "already used")
		}
		content, err = r.box.Open(stored.Content)
		if err != nil {
			return nil, err
		}
	}

	santaView := r.views.renderPlain(stored, content, stored.SantaID)
	gifteeView := r.views.renderPlain(stored, content, stored.GifteeID)
	r.push(ctx, sess.RaffleID, stored.SantaID, santaView)
	r.push(ctx, sess.RaffleID, stored.GifteeID, gifteeView)

	if created {
		r.metrics.IncRelayed("delivered")
		r.log.Debug("Relayed chat message", "raffle_id", sess.RaffleID, "message_id", stored.ID, "role", stored.SenderRole)
	} else {
		r.metrics.IncRelayed("duplicate")
	}
	if sess.MemberID == stored.SantaID {
		return &santaView, nil
	}
	return &gifteeView, nil
}

// push is best effort; offline members pick the message up from history.
func (r *Relay) push(ctx context.Context, raffleID, memberID uuid.UUID, view MessageView) {
	env, err := realtime.NewEnvelope(realtime.MemberChannel(raffleID, memberID), realtime.EventChatMessage, view)
	if err != nil {
		r.log.Warn("Encode relay frame failed", "error", err)
		return
	}
	if err := r.emitter.Emit(ctx, env); err != nil {
		r.log.Warn("Relay push failed", "raffle_id", raffleID, "member_id", memberID, "error", err)
	}
}

// HandleFrame adapts Handle to the websocket loop. On success it returns
// nil because the sender's own copy arrives on its member channel.
func (r *Relay) HandleFrame(ctx context.Context, sess *Session, raw []byte) []byte {
	var in InboundFrame
	if err := json.Unmarshal(raw, &in); err != nil {
		return errorFrame("invalid_frame", "frame must be a JSON object with content and role")
	}
	if _, err := r.Handle(ctx, sess, in); err != nil {
		code, msg := RelayErrorCode(err)
		if code == "internal" {
			r.log.Error("Relay frame failed", "raffle_id", sess.RaffleID, "error", err)
		}
		return errorFrame(code, msg)
	}
	return nil
}

// RelayErrorCode maps a relay failure to the code sent to the client.
func RelayErrorCode(err error) (string, string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return "validation_error", verr.Error()
	case errors.Is(err, ErrNotDrawnYet):
		return "not_drawn_yet", ErrNotDrawnYet.Error()
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated", ErrUnauthenticated.Error()
	case errors.Is(err, ErrNotMember):
		return "not_member", ErrNotMember.Error()
	case errors.Is(err, ErrNotFound), errors.Is(err, repoerr.ErrNotFound):
		return "not_found", ErrNotFound.Error()
	default:
		return "internal", "message could not be delivered"
	}
}

func errorFrame(code, msg string) []byte {
	b, _ := json.Marshal(ErrorFrame{Error: ErrorBody{Code: code, Message: msg}})
	return b
}
