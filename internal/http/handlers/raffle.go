package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/secretsanta-backend/internal/http/response"
	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
	"github.com/yungbote/secretsanta-backend/internal/services"
)

type RaffleHandler struct {
	log     *logger.Logger
	raffles services.RaffleService
}

func NewRaffleHandler(log *logger.Logger, raffles services.RaffleService) *RaffleHandler {
	return &RaffleHandler{log: log.With("handler", "RaffleHandler"), raffles: raffles}
}

type createRaffleRequest struct {
	Name string `json:"name"`
}

// POST /api/raffles
func (h *RaffleHandler) CreateRaffle(c *gin.Context) {
	var req createRaffleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	raffle, err := h.raffles.Create(requestDB(c), req.Name)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"raffle": raffle})
}

// GET /api/raffles/:id
func (h *RaffleHandler) GetRaffle(c *gin.Context) {
	id, ok := raffleID(c)
	if !ok {
		return
	}
	view, err := h.raffles.Get(requestDB(c), id)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"raffle": view})
}

// DELETE /api/raffles/:id
func (h *RaffleHandler) DeleteRaffle(c *gin.Context) {
	id, ok := raffleID(c)
	if !ok {
		return
	}
	if err := h.raffles.Delete(requestDB(c), id); err != nil {
		respondErr(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/raffles/:id/join
func (h *RaffleHandler) JoinRaffle(c *gin.Context) {
	id, ok := raffleID(c)
	if !ok {
		return
	}
	var in services.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	member, err := h.raffles.Join(requestDB(c), id, in)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"member": member})
}

// PUT /api/raffles/:id/my-profile
func (h *RaffleHandler) UpdateMyProfile(c *gin.Context) {
	id, ok := raffleID(c)
	if !ok {
		return
	}
	var in services.ProfileInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	member, err := h.raffles.UpdateMyProfile(requestDB(c), id, in)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"member": member})
}

// DELETE /api/raffles/:id/members/me
func (h *RaffleHandler) LeaveRaffle(c *gin.Context) {
	id, ok := raffleID(c)
	if !ok {
		return
	}
	if err := h.raffles.Leave(requestDB(c), id); err != nil {
		respondErr(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
