package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/secretsanta-backend/internal/http/response"
	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
	"github.com/yungbote/secretsanta-backend/internal/services"
)

type ExclusionHandler struct {
	log        *logger.Logger
	exclusions services.ExclusionService
}

func NewExclusionHandler(log *logger.Logger, exclusions services.ExclusionService) *ExclusionHandler {
	return &ExclusionHandler{log: log.With("handler", "ExclusionHandler"), exclusions: exclusions}
}

type addExclusionRequest struct {
	MemberA uuid.UUID `json:"member_a_id" binding:"required"`
	MemberB uuid.UUID `json:"member_b_id" binding:"required"`
}

// GET /api/raffles/:id/exclusions
func (h *ExclusionHandler) ListExclusions(c *gin.Context) {
	id, ok := raffleID(c)
	if !ok {
		return
	}
	list, err := h.exclusions.List(requestDB(c), id)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"exclusions": list})
}

// POST /api/raffles/:id/exclusions
func (h *ExclusionHandler) AddExclusion(c *gin.Context) {
	id, ok := raffleID(c)
	if !ok {
		return
	}
	var req addExclusionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	excl, err := h.exclusions.Add(requestDB(c), id, req.MemberA, req.MemberB)
	if err != nil {
		respondErr(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"exclusion": excl})
}

// DELETE /api/raffles/:id/exclusions/:exclusionId
func (h *ExclusionHandler) RemoveExclusion(c *gin.Context) {
	id, ok := raffleID(c)
	if !ok {
		return
	}
	exclusionID, ok := pathID(c, "exclusionId")
	if !ok {
		return
	}
	if err := h.exclusions.Remove(requestDB(c), id, exclusionID); err != nil {
		respondErr(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
