package raffle

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/secretsanta-backend/internal/domain"
	"github.com/yungbote/secretsanta-backend/internal/data/repos/repoerr"
	"github.com/yungbote/secretsanta-backend/internal/platform/dbctx"
	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
)

type MemberRepo interface {
	Create(dbc dbctx.Context, row *types.Member) (*types.Member, error)
	GetByID(dbc dbctx.Context, raffleID, id uuid.UUID) (*types.Member, error)
	GetByRaffleAndUser(dbc dbctx.Context, raffleID, userID uuid.UUID) (*types.Member, error)
	// ListByRaffle returns members in join order.
	ListByRaffle(dbc dbctx.Context, raffleID uuid.UUID) ([]*types.Member, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, raffleID, id uuid.UUID) error
	DeleteByRaffle(dbc dbctx.Context, raffleID uuid.UUID) error
}

type memberRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMemberRepo(db *gorm.DB, log *logger.Logger) MemberRepo {
	return &memberRepo{db: db, log: log.With("repo", "MemberRepo")}
}

func (r *memberRepo) Create(dbc dbctx.Context, row *types.Member) (*types.Member, error) {
	if row == nil || row.RaffleID == uuid.Nil || row.UserID == uuid.Nil {
		return nil, fmt.Errorf("missing raffle_id or user_id")
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if err := dbc.DB(r.db).Create(row).Error; err != nil {
		return nil, repoerr.MapError("member.create", err)
	}
	return row, nil
}

func (r *memberRepo) GetByID(dbc dbctx.Context, raffleID, id uuid.UUID) (*types.Member, error) {
	var out types.Member
	if err := dbc.DB(r.db).Where("raffle_id = ? AND id = ?", raffleID, id).First(&out).Error; err != nil {
		return nil, repoerr.MapError("member.get", err)
	}
	return &out, nil
}

func (r *memberRepo) GetByRaffleAndUser(dbc dbctx.Context, raffleID, userID uuid.UUID) (*types.Member, error) {
	var out types.Member
	if err := dbc.DB(r.db).Where("raffle_id = ? AND user_id = ?", raffleID, userID).First(&out).Error; err != nil {
		return nil, repoerr.MapError("member.get_by_user", err)
	}
	return &out, nil
}

func (r *memberRepo) ListByRaffle(dbc dbctx.Context, raffleID uuid.UUID) ([]*types.Member, error) {
	var out []*types.Member
	if err := dbc.DB(r.db).
		Where("raffle_id = ?", raffleID).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, repoerr.MapError("member.list", err)
	}
	return out, nil
}

func (r *memberRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	res := dbc.DB(r.db).Model(&types.Member{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return repoerr.MapError("member.update", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("member.update: %w", repoerr.ErrNotFound)
	}
	return nil
}

func (r *memberRepo) Delete(dbc dbctx.Context, raffleID, id uuid.UUID) error {
	res := dbc.DB(r.db).Where("raffle_id = ? AND id = ?", raffleID, id).Delete(&types.Member{})
	if res.Error != nil {
		return repoerr.MapError("member.delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("member.delete: %w", repoerr.ErrNotFound)
	}
	return nil
}

func (r *memberRepo) DeleteByRaffle(dbc dbctx.Context, raffleID uuid.UUID) error {
	if err := dbc.DB(r.db).Where("raffle_id = ?", raffleID).Delete(&types.Member{}).Error; err != nil {
		return repoerr.MapError("member.delete_by_raffle", err)
	}
	return nil
}
