package chat

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/secretsanta-backend/internal/domain"
	"github.com/yungbote/secretsanta-backend/internal/data/repos/repoerr"
	"github.com/yungbote/secretsanta-backend/internal/platform/dbctx"
	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
)

// Conversation identifies one santa/giftee chat inside a raffle.
type Conversation struct {
	RaffleID uuid.UUID
	SantaID  uuid.UUID
	GifteeID uuid.UUID
}

type ChatMessageRepo interface {
	// CreateIdempotent inserts row unless a message with the same id exists.
	// It returns the stored row and whether this call created it.
	CreateIdempotent(dbc dbctx.Context, row *types.ChatMessage) (*types.ChatMessage, bool, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ChatMessage, error)
	// ListConversation returns the newest limit messages in ascending order.
	ListConversation(dbc dbctx.Context, conv Conversation, limit int) ([]*types.ChatMessage, error)
	// MarkRead marks unread messages written by sender as read.
	MarkRead(dbc dbctx.Context, conv Conversation, sender types.ChatRole, at time.Time) (int64, error)
	CountUnread(dbc dbctx.Context, conv Conversation, sender types.ChatRole) (int64, error)
	DeleteByRaffle(dbc dbctx.Context, raffleID uuid.UUID) error
}

type chatMessageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatMessageRepo(db *gorm.DB, log *logger.Logger) ChatMessageRepo {
	return &chatMessageRepo{db: db, log: log.With("repo", "ChatMessageRepo")}
}

func (r *chatMessageRepo) CreateIdempotent(dbc dbctx.Context, row *types.ChatMessage) (*types.ChatMessage, bool, error) {
	if row == nil || row.ID == uuid.Nil {
		return nil, false, fmt.Errorf("missing message id")
	}
	if row.RaffleID == uuid.Nil || row.SantaID == uuid.Nil || row.GifteeID == uuid.Nil {
		return nil, false, fmt.Errorf("missing conversation")
	}
	res := dbc.DB(r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(row)
	if res.Error != nil {
		return nil, false, repoerr.MapError("chat_message.create", res.Error)
	}
	if res.RowsAffected == 1 {
		return row, true, nil
	}
	existing, err := r.GetByID(dbc, row.ID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *chatMessageRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ChatMessage, error) {
	var out types.ChatMessage
	if err := dbc.DB(r.db).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, repoerr.MapError("chat_message.get", err)
	}
	return &out, nil
}

func (r *chatMessageRepo) conversation(dbc dbctx.Context, conv Conversation) *gorm.DB {
	return dbc.DB(r.db).
		Model(&types.ChatMessage{}).
		Where("raffle_id = ? AND santa_id = ? AND giftee_id = ?", conv.RaffleID, conv.SantaID, conv.GifteeID)
}

func (r *chatMessageRepo) ListConversation(dbc dbctx.Context, conv Conversation, limit int) ([]*types.ChatMessage, error) {
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	var out []*types.ChatMessage
	if err := r.conversation(dbc, conv).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, repoerr.MapError("chat_message.list", err)
	}
	// Normalize to ASC for clients.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *chatMessageRepo) MarkRead(dbc dbctx.Context, conv Conversation, sender types.ChatRole, at time.Time) (int64, error) {
	res := r.conversation(dbc, conv).
		Where("sender_role = ? AND read_at IS NULL", sender).
		Update("read_at", at)
	if res.Error != nil {
		return 0, repoerr.MapError("chat_message.mark_read", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *chatMessageRepo) CountUnread(dbc dbctx.Context, conv Conversation, sender types.ChatRole) (int64, error) {
	var n int64
	if err := r.conversation(dbc, conv).
		Where("sender_role = ? AND read_at IS NULL", sender).
		Count(&n).Error; err != nil {
		return 0, repoerr.MapError("chat_message.count_unread", err)
	}
	return n, nil
}

func (r *chatMessageRepo) DeleteByRaffle(dbc dbctx.Context, raffleID uuid.UUID) error {
	if err := dbc.DB(r.db).Where("raffle_id = ?", raffleID).Delete(&types.ChatMessage{}).Error; err != nil {
		return repoerr.MapError("chat_message.delete_by_raffle", err)
	}
	return nil
}
