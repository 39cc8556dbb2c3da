package services

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/secretsanta-backend/internal/data/repos"
	types "github.com/yungbote/secretsanta-backend/internal/domain"
	"github.com/yungbote/secretsanta-backend/internal/platform/dbctx"
	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
	"github.com/yungbote/secretsanta-backend/internal/platform/sealbox"
)

const historyLimit = 500

// MessageView is a chat message as one participant sees it. When the viewer
// is the giftee, SantaID carries the santa's pseudonym.
type MessageView struct {
	ID         uuid.UUID      `json:"id"`
	Content    string         `json:"content"`
	SantaID    uuid.UUID      `json:"santaId"`
	GifteeID   uuid.UUID      `json:"gifteeId"`
	SenderRole types.ChatRole `json:"senderRole"`
	ReadAt     *time.Time     `json:"readAt,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

type Unread struct {
	FromGiftee int64 `json:"fromGiftee"`
	FromSanta  int64 `json:"fromSanta"`
	Total      int64 `json:"total"`
}

// messageViews renders stored messages for one viewer.
type messageViews struct {
	box        *sealbox.Box
	pseudonyms *Pseudonyms
}

func (v messageViews) render(msg *types.ChatMessage, viewer uuid.UUID) (MessageView, error) {
	content, err := v.box.Open(msg.Content)
	if err != nil {
		return MessageView{}, err
	}
	return v.renderPlain(msg, content, viewer), nil
}

func (v messageViews) renderPlain(msg *types.ChatMessage, content string, viewer uuid.UUID) MessageView {
	santaID := msg.SantaID
	if viewer != msg.SantaID {
		santaID = v.pseudonyms.Santa(msg.RaffleID, msg.SantaID)
	}
	return MessageView{
		ID:         msg.ID,
		Content:    content,
		SantaID:    santaID,
		GifteeID:   msg.GifteeID,
		SenderRole: msg.SenderRole,
		ReadAt:     msg.ReadAt,
		CreatedAt:  msg.CreatedAt,
	}
}

type ChatService interface {
	// History loads the conversation the caller takes part in as role and
	// marks the counterpart's messages read.
	History(dbc dbctx.Context, raffleID uuid.UUID, role types.ChatRole) ([]MessageView, error)
	Unread(dbc dbctx.Context, raffleID uuid.UUID) (*Unread, error)
}

type chatService struct {
	raffleAccess
	log      *logger.Logger
	messages repos.ChatMessageRepo
	routing  RoutingTable
	views    messageViews
}

func NewChatService(
	log *logger.Logger,
	raffleRepo repos.RaffleRepo,
	memberRepo repos.MemberRepo,
	messageRepo repos.ChatMessageRepo,
	routing RoutingTable,
	box *sealbox.Box,
	pseudonyms *Pseudonyms,
) ChatService {
	return &chatService{
		raffleAccess: raffleAccess{raffles: raffleRepo, members: memberRepo},
		log:          log.With("service", "ChatService"),
		messages:     messageRepo,
		routing:      routing,
		views:        messageViews{box: box, pseudonyms: pseudonyms},
	}
}

func counterpartRole(role types.ChatRole) types.ChatRole {
	if role == types.ChatRoleSanta {
		return types.ChatRoleGiftee
	}
	return types.ChatRoleSanta
}

func (s *chatService) History(dbc dbctx.Context, raffleID uuid.UUID, role types.ChatRole) ([]MessageView, error) {
	if !role.Valid() {
		return nil, invalid("role", "must be santa or giftee")
	}
	_, me, err := s.member(dbc, raffleID)
	if err != nil {
		return nil, err
	}
	route, err := s.routing.Counterpart(dbc.Ctx, raffleID, me.ID, role)
	if err != nil {
		return nil, err
	}
	conv := repos.Conversation{RaffleID: raffleID, SantaID: route.SantaID, GifteeID: route.GifteeID}
	rows, err := s.messages.ListConversation(dbc, conv, historyLimit)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if _, err := s.messages.MarkRead(dbc, conv, counterpartRole(role), now); err != nil {
		return nil, err
	}

	out := make([]MessageView, 0, len(rows))
	for _, row := range rows {
		view, err := s.views.render(row, me.ID)
		if err != nil {
			s.log.Warn("Skipping unreadable chat message", "message_id", row.ID, "error", err)
			continue
		}
		out = append(out, view)
	}
	return out, nil
}

func (s *chatService) Unread(dbc dbctx.Context, raffleID uuid.UUID) (*Unread, error) {
	_, me, err := s.member(dbc, raffleID)
	if err != nil {
		return nil, err
	}
	out := &Unread{}
	asSanta, err := s.routing.Counterpart(dbc.Ctx, raffleID, me.ID, types.ChatRoleSanta)
	if err != nil {
		return nil, err
	}
	out.FromGiftee, err = s.messages.CountUnread(dbc, repos.Conversation{
		RaffleID: raffleID, SantaID: asSanta.SantaID, GifteeID: asSanta.GifteeID,
	}, types.ChatRoleGiftee)
	if err != nil {
		return nil, err
	}
	asGiftee, err := s.routing.Counterpart(dbc.Ctx, raffleID, me.ID, types.ChatRoleGiftee)
	if err != nil {
		return nil, err
	}
	out.FromSanta, err = s.messages.CountUnread(dbc, repos.Conversation{
		RaffleID: raffleID, SantaID: asGiftee.SantaID, GifteeID: asGiftee.GifteeID,
	}, types.ChatRoleSanta)
	if err != nil {
		return nil, err
	}
	out.Total = out.FromGiftee + out.FromSanta
	return out, nil
}
