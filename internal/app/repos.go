package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/secretsanta-backend/internal/data/repos"
	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
)

type Repos struct {
	Raffle     repos.RaffleRepo
	Member     repos.MemberRepo
	Exclusion  repos.ExclusionRepo
	Assignment repos.AssignmentRepo
	Message    repos.ChatMessageRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Raffle:     repos.NewRaffleRepo(db, log),
		Member:     repos.NewMemberRepo(db, log),
		Exclusion:  repos.NewExclusionRepo(db, log),
		Assignment: repos.NewAssignmentRepo(db, log),
		Message:    repos.NewChatMessageRepo(db, log),
	}
}
