package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/secretsanta-backend/internal/data/repos/chat"
	"github.com/yungbote/secretsanta-backend/internal/data/repos/raffle"
	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
)

type RaffleRepo = raffle.RaffleRepo
type MemberRepo = raffle.MemberRepo
type ExclusionRepo = raffle.ExclusionRepo
type AssignmentRepo = raffle.AssignmentRepo

type ChatMessageRepo = chat.ChatMessageRepo
type Conversation = chat.Conversation

func NewRaffleRepo(db *gorm.DB, baseLog *logger.Logger) RaffleRepo {
	return raffle.NewRaffleRepo(db, baseLog)
}
func NewMemberRepo(db *gorm.DB, baseLog *logger.Logger) MemberRepo {
	return raffle.NewMemberRepo(db, baseLog)
}
func NewExclusionRepo(db *gorm.DB, baseLog *logger.Logger) ExclusionRepo {
	return raffle.NewExclusionRepo(db, baseLog)
}
func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	return raffle.NewAssignmentRepo(db, baseLog)
}

func NewChatMessageRepo(db *gorm.DB, baseLog *logger.Logger) ChatMessageRepo {
	return chat.NewChatMessageRepo(db, baseLog)
}
