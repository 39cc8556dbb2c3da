package realtime

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	maxFrameSize = 64 * 1024
)

// FrameHandler processes one inbound text frame. A non-nil reply is sent
// back to the same connection only.
type FrameHandler func(ctx context.Context, frame []byte) (reply []byte)

// NewUpgrader accepts same-origin requests, requests without an Origin
// header (non-browser clients), and the listed origins.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(strings.TrimSpace(o), "/")] = true
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowed["*"] || allowed[origin] {
				return true
			}
			u, err := url.Parse(origin)
			return err == nil && strings.EqualFold(u.Host, r.Host)
		},
	}
}

// ServeWS pumps frames between conn and client until either side closes or
// ctx is done. It blocks and always closes conn and the client.
func (hub *Hub) ServeWS(ctx context.Context, conn *websocket.Conn, client *Client, onFrame FrameHandler) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		hub.writePump(conn, client)
	}()
	go func() {
		select {
		case <-ctx.Done():
		case <-client.Done():
		}
		// Unblocks ReadMessage.
		_ = conn.SetReadDeadline(time.Now())
	}()

	hub.readPump(ctx, conn, client, onFrame)
	hub.CloseClient(client)
	<-writerDone
	_ = conn.Close()
}

func (hub *Hub) readPump(ctx context.Context, conn *websocket.Conn, client *Client, onFrame FrameHandler) {
	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		msgType, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				hub.logger.Debug("websocket read ended", "client_id", client.ID, "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if reply := onFrame(ctx, frame); reply != nil {
			if !hub.Send(client, reply) {
				return
			}
		}
	}
}

func (hub *Hub) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case data, ok := <-client.Outbound:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				hub.CloseClient(client)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				hub.CloseClient(client)
				return
			}
		}
	}
}
