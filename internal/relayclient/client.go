package relayclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
)

const (
	DefaultReconnectDelay = 3 * time.Second

	writeWait    = 10 * time.Second
	pongWait     = 75 * time.Second
	maxFrameSize = 64 * 1024
)

type Options struct {
	// BaseURL is the API root, e.g. https://santa.example.com/api.
	BaseURL  string
	RaffleID uuid.UUID
	// Credential is the bearer token sent on every (re)connect.
	Credential     string
	ReconnectDelay time.Duration
	// SyncHistory loads both conversations after every connect so messages
	// sent while offline show up.
	SyncHistory bool

	Dialer     *websocket.Dialer
	HTTPClient *http.Client
	Logger     *logger.Logger

	OnMessage     func(Message)
	OnStateChange func(from, to State)
	// OnError receives errors worth showing to a user: rejected handshakes
	// and error frames. Dropped connections are retried silently.
	OnError func(error)
}

// Client keeps one relay connection alive until Close. It reconnects after
// a fixed delay on any failure except a rejected credential.
type Client struct {
	opts  Options
	log   *logger.Logger
	inbox *Inbox

	mu      sync.Mutex
	state   State
	conn    *websocket.Conn
	running bool

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeCh   chan struct{}
	done      chan struct{}
}

func New(opts Options) (*Client, error) {
	opts.BaseURL = strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("relayclient: base url required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("relayclient: base url: %w", err)
	}
	if opts.RaffleID == uuid.Nil {
		return nil, fmt.Errorf("relayclient: raffle id required")
	}
	if strings.TrimSpace(opts.Credential) == "" {
		return nil, fmt.Errorf("relayclient: credential required")
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		opts:    opts,
		log:     log.With("component", "RelayClient", "raffle_id", opts.RaffleID),
		inbox:   NewInbox(),
		state:   Disconnected,
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) Inbox() *Inbox { return c.inbox }

// Done is closed when Run returns.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close asks Run to shut the connection down and stop. It does not wait;
// use Done for that.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.closeCh) })
}

func (c *Client) closed() bool {
	select {
	case <-c.closeCh:
		return true
	default:
		return false
	}
}

func (c *Client) setState(to State) {
	c.mu.Lock()
	from := c.state
	if from == to {
		c.mu.Unlock()
		return
	}
	if !canTransition(from, to) {
		c.log.Warn("Unexpected relay state transition", "from", from.String(), "to", to.String())
	}
	c.state = to
	c.mu.Unlock()
	c.log.Debug("Relay state", "from", from.String(), "to", to.String())
	if c.opts.OnStateChange != nil {
		c.opts.OnStateChange(from, to)
	}
}

func (c *Client) report(err error) {
	if err == nil {
		return
	}
	if c.opts.OnError != nil {
		c.opts.OnError(err)
	}
}

// Run drives the connection until Close is called, ctx is done, or the
// server rejects the handshake for good. It returns nil after Close.
func (c *Client) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrRunning
	}
	if c.closed() {
		c.mu.Unlock()
		return ErrClosed
	}
	c.running = true
	c.mu.Unlock()
	defer close(c.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.closeCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	timer := time.NewTimer(c.opts.ReconnectDelay)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		c.setState(Connecting)
		conn, err := c.dial(ctx)
		if err == nil {
			c.setState(Connected)
			err = c.serve(ctx, conn)
		}
		if ctx.Err() != nil {
			return c.shutdown(ctx, conn)
		}

		c.setState(Erroring)
		var rejected *RejectedError
		if errors.Is(err, ErrUnauthenticated) || errors.As(err, &rejected) {
			c.report(err)
			c.setState(Disconnected)
			return err
		}
		c.log.Debug("Relay connection lost", "error", err)

		c.setState(Reconnecting)
		timer.Reset(c.opts.ReconnectDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return c.shutdown(ctx, nil)
		}
	}
}

func (c *Client) shutdown(ctx context.Context, conn *websocket.Conn) error {
	c.setState(Closing)
	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	c.setState(Disconnected)
	if c.closed() {
		return nil
	}
	return ctx.Err()
}

func (c *Client) wsURL() (string, error) {
	u, err := url.Parse(c.opts.BaseURL + "/raffles/" + c.opts.RaffleID.String() + "/chat/ws")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String(), nil
}

func (c *Client) authHeader() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.opts.Credential)
	return h
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	target, err := c.wsURL()
	if err != nil {
		return nil, err
	}
	conn, resp, err := c.opts.Dialer.DialContext(ctx, target, c.authHeader())
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			switch {
			case resp.StatusCode == http.StatusUnauthorized:
				return nil, ErrUnauthenticated
			case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusNotFound:
				return nil, &RejectedError{StatusCode: resp.StatusCode}
			}
		}
		return nil, err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return conn, nil
}

// serve reads frames until the connection fails or ctx is done.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			_ = conn.SetReadDeadline(time.Now())
		case <-stop:
		}
	}()

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	if c.opts.SyncHistory {
		go c.syncHistory(ctx)
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.conn = nil
			c.mu.Unlock()
			_ = conn.Close()
			return err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.log.Warn("Dropping undecodable relay frame", "error", err)
		return
	}
	if frame.Error != nil {
		c.report(frame.Error)
		return
	}
	if frame.ID == uuid.Nil {
		return
	}
	c.deliver(frame.Message)
}

func (c *Client) deliver(msgs ...Message) {
	for _, m := range c.inbox.Merge(msgs...) {
		if c.opts.OnMessage != nil {
			c.opts.OnMessage(m)
		}
	}
}

func (c *Client) syncHistory(ctx context.Context) {
	for _, role := range []string{RoleSanta, RoleGiftee} {
		msgs, err := c.History(ctx, role)
		if err != nil {
			var serverErr *ServerError
			switch {
			case ctx.Err() != nil:
			case errors.Is(err, ErrUnauthenticated), errors.As(err, &serverErr):
				c.report(err)
			default:
				c.log.Debug("Relay history sync failed", "role", role, "error", err)
			}
			continue
		}
		c.deliver(msgs...)
	}
}

// Send writes content into the conversation the caller takes part in as
// role. It returns the client id attached to the frame; resending with
// SendWithID and the same id never creates a second message.
func (c *Client) Send(ctx context.Context, content, role string) (string, error) {
	id := uuid.NewString()
	return id, c.SendWithID(ctx, id, content, role)
}

func (c *Client) SendWithID(ctx context.Context, clientID, content, role string) error {
	if role != RoleSanta && role != RoleGiftee {
		return fmt.Errorf("relayclient: role must be %q or %q", RoleSanta, RoleGiftee)
	}
	c.mu.Lock()
	conn, state := c.conn, c.state
	c.mu.Unlock()
	if state != Connected || conn == nil {
		return ErrNotConnected
	}
	payload, err := json.Marshal(outboundFrame{Content: content, Role: role, ClientID: clientID})
	if err != nil {
		return err
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(deadline)
	return conn.WriteMessage(websocket.TextMessage, payload)
}
