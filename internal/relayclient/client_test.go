package relayclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type fakeRelay struct {
	t        *testing.T
	upgrader websocket.Upgrader

	mu      sync.Mutex
	dials   []time.Time
	auth    []string
	frames  chan outboundFrame
	status  int
	onConn  func(n int, conn *websocket.Conn)
	history map[string][]Message
}

func newFakeRelay(t *testing.T) *fakeRelay {
	return &fakeRelay{t: t, frames: make(chan outboundFrame, 16), history: map[string][]Message{}}
}

func (f *fakeRelay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	status := f.status
	f.mu.Unlock()

	if strings.HasSuffix(r.URL.Path, "/chat/giftee") || strings.HasSuffix(r.URL.Path, "/chat/santa") {
		p := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		f.mu.Lock()
		msgs := f.history[p]
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"messages": msgs})
		return
	}

	f.mu.Lock()
	f.dials = append(f.dials, time.Now())
	n := len(f.dials)
	onConn := f.onConn
	f.mu.Unlock()
	if status != 0 {
		http.Error(w, "rejected", status)
		return
	}
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	if onConn != nil {
		onConn(n, conn)
		return
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var in outboundFrame
		if err := json.Unmarshal(data, &in); err == nil {
			f.frames <- in
		}
	}
}

func (f *fakeRelay) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.dials)
}

type stateLog struct {
	mu     sync.Mutex
	states []State
	ch     chan State
}

func newStateLog() *stateLog { return &stateLog{ch: make(chan State, 64)} }

func (l *stateLog) record(from, to State) {
	l.mu.Lock()
	l.states = append(l.states, to)
	l.mu.Unlock()
	l.ch <- to
}

func (l *stateLog) waitFor(t *testing.T, want State, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case s := <-l.ch:
			if s == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %s", want)
		}
	}
}

func newTestClient(t *testing.T, srv *httptest.Server, opts Options) *Client {
	t.Helper()
	opts.BaseURL = srv.URL + "/api"
	if opts.RaffleID == uuid.Nil {
		opts.RaffleID = uuid.New()
	}
	if opts.Credential == "" {
		opts.Credential = "secret-token"
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(Options{BaseURL: "http://localhost/api", RaffleID: uuid.New(), Credential: "x"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.opts.ReconnectDelay != DefaultReconnectDelay || DefaultReconnectDelay != 3*time.Second {
		t.Fatalf("ReconnectDelay: want=3s got=%s", c.opts.ReconnectDelay)
	}
	if c.State() != Disconnected {
		t.Fatalf("State: want=%s got=%s", Disconnected, c.State())
	}
	if _, err := New(Options{BaseURL: "http://localhost/api", RaffleID: uuid.New()}); err == nil {
		t.Fatalf("New without credential: want error")
	}
	got, err := c.wsURL()
	if err != nil || !strings.HasPrefix(got, "ws://localhost/api/raffles/") || !strings.HasSuffix(got, "/chat/ws") {
		t.Fatalf("wsURL: got=%s err=%v", got, err)
	}
}

func TestClient_ReconnectsAtFixedInterval(t *testing.T) {
	relay := newFakeRelay(t)
	relay.onConn = func(n int, conn *websocket.Conn) {
		if n < 3 {
			return // drop the connection right away
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
	srv := httptest.NewServer(relay)
	defer srv.Close()

	delay := 100 * time.Millisecond
	states := newStateLog()
	c := newTestClient(t, srv, Options{ReconnectDelay: delay, OnStateChange: states.record})

	errc := make(chan error, 1)
	go func() { errc <- c.Run(context.Background()) }()

	deadline := time.Now().Add(5 * time.Second)
	for relay.dialCount() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("dials: want>=3 got=%d", relay.dialCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
	states.waitFor(t, Connected, 2*time.Second)

	relay.mu.Lock()
	dials := append([]time.Time(nil), relay.dials...)
	relay.mu.Unlock()
	for i := 1; i < 3; i++ {
		gap := dials[i].Sub(dials[i-1])
		if gap < delay || gap > delay*10 {
			t.Fatalf("reconnect gap %d: want about %s got=%s", i, delay, gap)
		}
	}

	c.Close()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Run: want=nil after Close got=%v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("Run did not return after Close")
	}
	if c.State() != Disconnected {
		t.Fatalf("State after Close: want=%s got=%s", Disconnected, c.State())
	}

	states.mu.Lock()
	seq := append([]State(nil), states.states...)
	states.mu.Unlock()
	want := []State{Connecting, Connected, Erroring, Reconnecting, Connecting}
	for i, s := range want {
		if i >= len(seq) || seq[i] != s {
			t.Fatalf("state sequence: want prefix=%v got=%v", want, seq)
		}
	}
	if last := seq[len(seq)-2:]; last[0] != Closing || last[1] != Disconnected {
		t.Fatalf("state sequence: want suffix=[closing disconnected] got=%v", seq)
	}
}

func TestClient_UnauthenticatedStops(t *testing.T) {
	relay := newFakeRelay(t)
	relay.status = http.StatusUnauthorized
	srv := httptest.NewServer(relay)
	defer srv.Close()

	var gotErr error
	c := newTestClient(t, srv, Options{
		ReconnectDelay: 10 * time.Millisecond,
		OnError:        func(err error) { gotErr = err },
	})
	err := c.Run(context.Background())
	if !errors.Is(err, ErrUnauthenticated) || !errors.Is(gotErr, ErrUnauthenticated) {
		t.Fatalf("Run: want=ErrUnauthenticated got=%v reported=%v", err, gotErr)
	}
	if relay.dialCount() != 1 {
		t.Fatalf("dials: want=1 got=%d", relay.dialCount())
	}
	if c.State() != Disconnected {
		t.Fatalf("State: want=%s got=%s", Disconnected, c.State())
	}
	relay.mu.Lock()
	auth := relay.auth[0]
	relay.mu.Unlock()
	if auth != "Bearer secret-token" {
		t.Fatalf("Authorization: want bearer credential got=%q", auth)
	}
}

func TestClient_DroppedConnectionsNotReported(t *testing.T) {
	relay := newFakeRelay(t)
	relay.onConn = func(n int, conn *websocket.Conn) {}
	srv := httptest.NewServer(relay)
	defer srv.Close()

	var mu sync.Mutex
	var reported []error
	c := newTestClient(t, srv, Options{
		ReconnectDelay: 20 * time.Millisecond,
		OnError: func(err error) {
			mu.Lock()
			reported = append(reported, err)
			mu.Unlock()
		},
	})

	errc := make(chan error, 1)
	go func() { errc <- c.Run(context.Background()) }()

	deadline := time.Now().Add(5 * time.Second)
	for relay.dialCount() < 4 {
		if time.Now().After(deadline) {
			t.Fatalf("dials: want>=4 got=%d", relay.dialCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
	c.Close()
	select {
	case <-errc:
	case <-time.After(3 * time.Second):
		t.Fatalf("Run did not return after Close")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(reported) != 0 {
		t.Fatalf("OnError: want=0 calls got=%d first=%v", len(reported), reported[0])
	}
}

func TestClient_SendAndServerError(t *testing.T) {
	relay := newFakeRelay(t)
	relay.onConn = func(n int, conn *websocket.Conn) {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var in outboundFrame
			_ = json.Unmarshal(data, &in)
			relay.frames <- in
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":{"code":"validation_error","message":"too long"}}`))
		}
	}
	srv := httptest.NewServer(relay)
	defer srv.Close()

	errs := make(chan error, 4)
	states := newStateLog()
	c := newTestClient(t, srv, Options{OnStateChange: states.record, OnError: func(err error) { errs <- err }})
	if _, err := c.Send(context.Background(), "hi", RoleSanta); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Send before connect: want=ErrNotConnected got=%v", err)
	}
	go func() { _ = c.Run(context.Background()) }()
	defer c.Close()
	states.waitFor(t, Connected, 2*time.Second)

	if _, err := c.Send(context.Background(), "hi", "elf"); err == nil {
		t.Fatalf("Send bad role: want error")
	}
	if err := c.SendWithID(context.Background(), "c-1", "hello", RoleGiftee); err != nil {
		t.Fatalf("SendWithID: %v", err)
	}
	select {
	case in := <-relay.frames:
		if in.Content != "hello" || in.Role != RoleGiftee || in.ClientID != "c-1" {
			t.Fatalf("frame: unexpected %+v", in)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not receive frame")
	}
	select {
	case err := <-errs:
		var serr *ServerError
		if !errors.As(err, &serr) || serr.Code != "validation_error" {
			t.Fatalf("OnError: want ServerError got=%v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("OnError not called")
	}
	if c.State() != Connected {
		t.Fatalf("State after server error: want=%s got=%s", Connected, c.State())
	}
}

func TestClient_DedupesLiveAndHistory(t *testing.T) {
	santa, giftee := uuid.New(), uuid.New()
	t0 := time.Now().UTC().Truncate(time.Millisecond)
	m1 := Message{ID: uuid.New(), Content: "one", SantaID: santa, GifteeID: giftee, SenderRole: RoleSanta, CreatedAt: t0}
	m2 := Message{ID: uuid.New(), Content: "two", SantaID: santa, GifteeID: giftee, SenderRole: RoleGiftee, CreatedAt: t0.Add(time.Second)}

	relay := newFakeRelay(t)
	relay.history["giftee"] = []Message{m1}
	relay.onConn = func(n int, conn *websocket.Conn) {
		for _, m := range []Message{m1, m2, m1, m2} {
			b, _ := json.Marshal(m)
			_ = conn.WriteMessage(websocket.TextMessage, b)
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
	srv := httptest.NewServer(relay)
	defer srv.Close()

	var mu sync.Mutex
	var got []Message
	received := make(chan struct{}, 8)
	c := newTestClient(t, srv, Options{
		SyncHistory: true,
		OnMessage: func(m Message) {
			mu.Lock()
			got = append(got, m)
			mu.Unlock()
			received <- struct{}{}
		},
	})
	go func() { _ = c.Run(context.Background()) }()
	defer c.Close()

	for i := 0; i < 2; i++ {
		select {
		case <-received:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
	// Give duplicates a chance to show up.
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("OnMessage: want=2 distinct messages got=%d", len(got))
	}
	conv := c.Inbox().Conversation(ConversationKey{SantaID: santa, GifteeID: giftee})
	msgs := conv.Messages()
	if len(msgs) != 2 || msgs[0].ID != m1.ID || msgs[1].ID != m2.ID {
		t.Fatalf("Conversation: want [one two] got=%+v", msgs)
	}
}
