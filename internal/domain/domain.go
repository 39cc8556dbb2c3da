package domain

import (
	"github.com/yungbote/secretsanta-backend/internal/domain/chat"
	"github.com/yungbote/secretsanta-backend/internal/domain/raffle"
)

type (
	Raffle     = raffle.Raffle
	DrawMeta   = raffle.DrawMeta
	Member     = raffle.Member
	Exclusion  = raffle.Exclusion
	Assignment = raffle.Assignment

	ChatRole    = chat.Role
	ChatMessage = chat.ChatMessage
)

const (
	ChatRoleSanta  = chat.RoleSanta
	ChatRoleGiftee = chat.RoleGiftee
)

// Models lists every persisted type, in migration order.
func Models() []any {
	return []any{
		&Raffle{},
		&Member{},
		&Exclusion{},
		&Assignment{},
		&ChatMessage{},
	}
}
