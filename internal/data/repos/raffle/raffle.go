package raffle

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/secretsanta-backend/internal/domain"
	"github.com/yungbote/secretsanta-backend/internal/data/repos/repoerr"
	"github.com/yungbote/secretsanta-backend/internal/platform/dbctx"
	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
)

type RaffleRepo interface {
	Create(dbc dbctx.Context, row *types.Raffle) (*types.Raffle, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Raffle, error)
	// LockByID reads the raffle holding a row lock until dbc.Tx ends.
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Raffle, error)
	MarkDrawn(dbc dbctx.Context, id uuid.UUID, at time.Time, meta datatypes.JSON) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type raffleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRaffleRepo(db *gorm.DB, log *logger.Logger) RaffleRepo {
	return &raffleRepo{db: db, log: log.With("repo", "RaffleRepo")}
}

func (r *raffleRepo) Create(dbc dbctx.Context, row *types.Raffle) (*types.Raffle, error) {
	if row == nil {
		return nil, fmt.Errorf("missing raffle")
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if err := dbc.DB(r.db).Create(row).Error; err != nil {
		return nil, repoerr.MapError("raffle.create", err)
	}
	return row, nil
}

func (r *raffleRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Raffle, error) {
	var out types.Raffle
	if err := dbc.DB(r.db).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, repoerr.MapError("raffle.get", err)
	}
	return &out, nil
}

func (r *raffleRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Raffle, error) {
	if dbc.Tx == nil {
		return nil, fmt.Errorf("raffle.lock: requires a transaction")
	}
	q := dbc.DB(r.db)
	// SQLite has no row locks; its single writer connection already
	// serializes the transaction.
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var out types.Raffle
	if err := q.Where("id = ?", id).First(&out).Error; err != nil {
		return nil, repoerr.MapError("raffle.lock", err)
	}
	return &out, nil
}

func (r *raffleRepo) MarkDrawn(dbc dbctx.Context, id uuid.UUID, at time.Time, meta datatypes.JSON) error {
	res := dbc.DB(r.db).
		Model(&types.Raffle{}).
		Where("id = ? AND is_drawn = ?", id, false).
		Updates(map[string]interface{}{
			"is_drawn":   true,
			"drawn_at":   at,
			"draw_meta":  meta,
			"updated_at": at,
		})
	if res.Error != nil {
		return repoerr.MapError("raffle.mark_drawn", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("raffle.mark_drawn: %w", repoerr.ErrConflict)
	}
	return nil
}

func (r *raffleRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	res := dbc.DB(r.db).Where("id = ?", id).Delete(&types.Raffle{})
	if res.Error != nil {
		return repoerr.MapError("raffle.delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("raffle.delete: %w", repoerr.ErrNotFound)
	}
	return nil
}
