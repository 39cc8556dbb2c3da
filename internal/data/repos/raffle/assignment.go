package raffle

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/secretsanta-backend/internal/domain"
	"github.com/yungbote/secretsanta-backend/internal/data/repos/repoerr"
	"github.com/yungbote/secretsanta-backend/internal/platform/dbctx"
	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
)

type AssignmentRepo interface {
	CreateBatch(dbc dbctx.Context, rows []*types.Assignment) error
	ListByRaffle(dbc dbctx.Context, raffleID uuid.UUID) ([]*types.Assignment, error)
	GetByGiver(dbc dbctx.Context, raffleID, giverID uuid.UUID) (*types.Assignment, error)
	Exists(dbc dbctx.Context, raffleID uuid.UUID) (bool, error)
	DeleteByRaffle(dbc dbctx.Context, raffleID uuid.UUID) error
}

type assignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssignmentRepo(db *gorm.DB, log *logger.Logger) AssignmentRepo {
	return &assignmentRepo{db: db, log: log.With("repo", "AssignmentRepo")}
}

func (r *assignmentRepo) CreateBatch(dbc dbctx.Context, rows []*types.Assignment) error {
	if len(rows) == 0 {
		return nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return repoerr.MapError("assignment.create_batch", err)
	}
	return nil
}

func (r *assignmentRepo) ListByRaffle(dbc dbctx.Context, raffleID uuid.UUID) ([]*types.Assignment, error) {
	var out []*types.Assignment
	if err := dbc.DB(r.db).Where("raffle_id = ?", raffleID).Find(&out).Error; err != nil {
		return nil, repoerr.MapError("assignment.list", err)
	}
	return out, nil
}

func (r *assignmentRepo) GetByGiver(dbc dbctx.Context, raffleID, giverID uuid.UUID) (*types.Assignment, error) {
	var out types.Assignment
	if err := dbc.DB(r.db).Where("raffle_id = ? AND giver_id = ?", raffleID, giverID).First(&out).Error; err != nil {
		return nil, repoerr.MapError("assignment.get_by_giver", err)
	}
	return &out, nil
}

func (r *assignmentRepo) Exists(dbc dbctx.Context, raffleID uuid.UUID) (bool, error) {
	var n int64
	if err := dbc.DB(r.db).Model(&types.Assignment{}).Where("raffle_id = ?", raffleID).Limit(1).Count(&n).Error; err != nil {
		return false, repoerr.MapError("assignment.exists", err)
	}
	return n > 0, nil
}

func (r *assignmentRepo) DeleteByRaffle(dbc dbctx.Context, raffleID uuid.UUID) error {
	if err := dbc.DB(r.db).Where("raffle_id = ?", raffleID).Delete(&types.Assignment{}).Error; err != nil {
		return repoerr.MapError("assignment.delete_by_raffle", err)
	}
	return nil
}
