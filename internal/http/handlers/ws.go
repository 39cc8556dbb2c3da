package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yungbote/secretsanta-backend/internal/http/middleware"
	"github.com/yungbote/secretsanta-backend/internal/observability"
	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
	"github.com/yungbote/secretsanta-backend/internal/realtime"
	"github.com/yungbote/secretsanta-backend/internal/services"
)

// RelayHandler upgrades authenticated members to the anonymous relay.
type RelayHandler struct {
	log      *logger.Logger
	relay    *services.Relay
	hub      *realtime.Hub
	upgrader *websocket.Upgrader
	metrics  *observability.Metrics
}

func NewRelayHandler(log *logger.Logger, relay *services.Relay, hub *realtime.Hub, allowedOrigins []string, metrics *observability.Metrics) *RelayHandler {
	return &RelayHandler{
		log:      log.With("handler", "RelayHandler"),
		relay:    relay,
		hub:      hub,
		upgrader: realtime.NewUpgrader(allowedOrigins),
		metrics:  metrics,
	}
}

// GET /api/raffles/:id/chat/ws
//
// The credential is checked before the upgrade so a rejected client gets a
// plain HTTP status it can act on.
func (h *RelayHandler) Connect(c *gin.Context) {
	id, ok := raffleID(c)
	if !ok {
		return
	}
	sess, err := h.relay.Authenticate(c.Request.Context(), id, middleware.ExtractToken(c))
	if err != nil {
		respondErr(c, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written the response.
		h.log.Debug("Websocket upgrade failed", "raffle_id", id, "error", err)
		return
	}

	client := h.hub.NewClient(sess.RaffleID, sess.MemberID)
	h.metrics.WSConnected()
	defer h.metrics.WSDisconnected()
	h.log.Debug("Relay connected", "raffle_id", sess.RaffleID, "member_id", sess.MemberID)

	ctx := c.Request.Context()
	h.hub.ServeWS(ctx, conn, client, func(ctx context.Context, frame []byte) []byte {
		return h.relay.HandleFrame(ctx, sess, frame)
	})
	h.log.Debug("Relay disconnected", "raffle_id", sess.RaffleID, "member_id", sess.MemberID)
}
