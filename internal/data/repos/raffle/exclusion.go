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

type ExclusionRepo interface {
	// Create normalizes the pair before inserting; a mirrored duplicate is
	// reported as repoerr.ErrConflict.
	Create(dbc dbctx.Context, row *types.Exclusion) (*types.Exclusion, error)
	ListByRaffle(dbc dbctx.Context, raffleID uuid.UUID) ([]*types.Exclusion, error)
	Delete(dbc dbctx.Context, raffleID, id uuid.UUID) error
	DeleteByMember(dbc dbctx.Context, raffleID, memberID uuid.UUID) (int64, error)
	DeleteByRaffle(dbc dbctx.Context, raffleID uuid.UUID) error
}

type exclusionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExclusionRepo(db *gorm.DB, log *logger.Logger) ExclusionRepo {
	return &exclusionRepo{db: db, log: log.With("repo", "ExclusionRepo")}
}

func (r *exclusionRepo) Create(dbc dbctx.Context, row *types.Exclusion) (*types.Exclusion, error) {
	if row == nil || row.RaffleID == uuid.Nil {
		return nil, fmt.Errorf("missing raffle_id")
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.Normalize()
	if err := dbc.DB(r.db).Create(row).Error; err != nil {
		return nil, repoerr.MapError("exclusion.create", err)
	}
	return row, nil
}

func (r *exclusionRepo) ListByRaffle(dbc dbctx.Context, raffleID uuid.UUID) ([]*types.Exclusion, error) {
	var out []*types.Exclusion
	if err := dbc.DB(r.db).
		Where("raffle_id = ?", raffleID).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, repoerr.MapError("exclusion.list", err)
	}
	return out, nil
}

func (r *exclusionRepo) Delete(dbc dbctx.Context, raffleID, id uuid.UUID) error {
	res := dbc.DB(r.db).Where("raffle_id = ? AND id = ?", raffleID, id).Delete(&types.Exclusion{})
	if res.Error != nil {
		return repoerr.MapError("exclusion.delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("exclusion.delete: %w", repoerr.ErrNotFound)
	}
	return nil
}

func (r *exclusionRepo) DeleteByMember(dbc dbctx.Context, raffleID, memberID uuid.UUID) (int64, error) {
	res := dbc.DB(r.db).
		Where("raffle_id = ? AND (member_a = ? OR member_b = ?)", raffleID, memberID, memberID).
		Delete(&types.Exclusion{})
	if res.Error != nil {
		return 0, repoerr.MapError("exclusion.delete_by_member", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *exclusionRepo) DeleteByRaffle(dbc dbctx.Context, raffleID uuid.UUID) error {
	if err := dbc.DB(r.db).Where("raffle_id = ?", raffleID).Delete(&types.Exclusion{}).Error; err != nil {
		return repoerr.MapError("exclusion.delete_by_raffle", err)
	}
	return nil
}
