package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/secretsanta-backend/internal/data/repos/repoerr"
	"github.com/yungbote/secretsanta-backend/internal/http/response"
	"github.com/yungbote/secretsanta-backend/internal/modules/draw"
	"github.com/yungbote/secretsanta-backend/internal/platform/apierr"
	"github.com/yungbote/secretsanta-backend/internal/platform/dbctx"
	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
	"github.com/yungbote/secretsanta-backend/internal/services"
)

// mapError is the single table from service failures to HTTP responses.
func mapError(err error) *apierr.Error {
	if ae, ok := apierr.From(err); ok {
		return ae
	}
	var (
		infeasible *draw.InfeasibleError
		membership *services.MembershipError
		verr       *services.ValidationError
	)
	switch {
	case errors.As(err, &infeasible):
		return apierr.New(http.StatusUnprocessableEntity, "infeasible_constraints", err).
			WithDetail("members", infeasible.Members).
			WithDetail("exclusions", infeasible.Exclusions).
			WithDetail("hint", infeasible.Hint())
	case errors.Is(err, services.ErrInfeasibleConstraints):
		return apierr.New(http.StatusUnprocessableEntity, "infeasible_constraints", err)
	case errors.As(err, &membership):
		return apierr.New(http.StatusUnprocessableEntity, "insufficient_members", err).
			WithDetail("members", membership.Have).
			WithDetail("required", membership.Need)
	case errors.Is(err, services.ErrInsufficientMembers):
		return apierr.New(http.StatusUnprocessableEntity, "insufficient_members", err)
	case errors.Is(err, services.ErrProfilesIncomplete):
		return apierr.New(http.StatusUnprocessableEntity, "profiles_incomplete", err)
	case errors.Is(err, services.ErrAlreadyDrawn):
		return apierr.New(http.StatusConflict, "already_drawn", err)
	case errors.Is(err, services.ErrLocked):
		return apierr.New(http.StatusConflict, "locked", err)
	case errors.Is(err, services.ErrDuplicateExclusion):
		return apierr.New(http.StatusConflict, "duplicate_exclusion", err)
	case errors.Is(err, services.ErrNotDrawnYet):
		return apierr.New(http.StatusConflict, "not_drawn_yet", err)
	case errors.Is(err, services.ErrAlreadyMember):
		return apierr.New(http.StatusConflict, "already_member", err)
	case errors.Is(err, services.ErrSelfExclusion):
		return apierr.New(http.StatusBadRequest, "self_exclusion", err)
	case errors.As(err, &verr):
		ae := apierr.New(http.StatusBadRequest, "validation_error", err)
		if verr.Field != "" {
			ae.WithDetail("field", verr.Field)
		}
		return ae.WithDetail("reason", verr.Reason)
	case errors.Is(err, services.ErrValidation):
		return apierr.New(http.StatusBadRequest, "validation_error", err)
	case errors.Is(err, services.ErrUnauthenticated):
		return apierr.New(http.StatusUnauthorized, "unauthenticated", err)
	case errors.Is(err, services.ErrForbidden):
		return apierr.New(http.StatusForbidden, "forbidden", err)
	case errors.Is(err, services.ErrNotMember):
		return apierr.New(http.StatusNotFound, "not_member", err)
	case errors.Is(err, services.ErrNotFound), errors.Is(err, repoerr.ErrNotFound):
		return apierr.New(http.StatusNotFound, "not_found", services.ErrNotFound)
	default:
		return apierr.New(http.StatusInternalServerError, "internal", err)
	}
}

func respondErr(c *gin.Context, log *logger.Logger, err error) {
	ae := mapError(err)
	_ = c.Error(err)
	if ae.Status >= http.StatusInternalServerError {
		log.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	response.RespondAPIError(c, ae)
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_"+name, err)
		return uuid.Nil, false
	}
	return id, true
}

func raffleID(c *gin.Context) (uuid.UUID, bool) { return pathID(c, "id") }

func requestDB(c *gin.Context) dbctx.Context { return dbctx.New(c.Request.Context()) }
