package handlers

import (
	"github.com/gin-gonic/gin"

	types "github.com/yungbote/secretsanta-backend/internal/domain"
	"github.com/yungbote/secretsanta-backend/internal/http/response"
	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
	"github.com/yungbote/secretsanta-backend/internal/services"
)

type ChatHandler struct {
	log  *logger.Logger
	chat services.ChatService
}

func NewChatHandler(log *logger.Logger, chat services.ChatService) *ChatHandler {
	return &ChatHandler{log: log.With("handler", "ChatHandler"), chat: chat}
}

// GET /api/raffles/:id/chat/giftee
//
// The caller's conversation with their giftee, where the caller is santa.
func (h *ChatHandler) GifteeHistory(c *gin.Context) { h.history(c, types.ChatRoleSanta) }

// GET /api/raffles/:id/chat/santa
func (h *ChatHandler) SantaHistory(c *gin.Context) { h.history(c, types.ChatRoleGiftee) }

func (h *ChatHandler) history(c *gin.Context, role types.ChatRole) {
	id, ok := raffleID(c)
	if !ok {
		return
	}
	msgs, err := h.chat.History(requestDB(c), id, role)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	if msgs == nil {
		msgs = []services.MessageView{}
	}
	response.RespondOK(c, gin.H{"messages": msgs})
}

// GET /api/raffles/:id/chat/unread
func (h *ChatHandler) Unread(c *gin.Context) {
	id, ok := raffleID(c)
	if !ok {
		return
	}
	u, err := h.chat.Unread(requestDB(c), id)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, u)
}
