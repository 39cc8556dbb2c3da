package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/secretsanta-backend/internal/http/response"
	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
	"github.com/yungbote/secretsanta-backend/internal/services"
)

type DrawHandler struct {
	log   *logger.Logger
	draws services.DrawService
}

func NewDrawHandler(log *logger.Logger, draws services.DrawService) *DrawHandler {
	return &DrawHandler{log: log.With("handler", "DrawHandler"), draws: draws}
}

// POST /api/raffles/:id/draw
func (h *DrawHandler) Draw(c *gin.Context) {
	id, ok := raffleID(c)
	if !ok {
		return
	}
	raffle, err := h.draws.Draw(requestDB(c), id)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"raffle": raffle})
}

// GET /api/raffles/:id/my-assignment
func (h *DrawHandler) GetMyAssignment(c *gin.Context) {
	id, ok := raffleID(c)
	if !ok {
		return
	}
	a, err := h.draws.GetMyAssignment(requestDB(c), id)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"assignment": a})
}
