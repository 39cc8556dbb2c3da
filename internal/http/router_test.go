package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yungbote/secretsanta-backend/internal/data/repos"
	"github.com/yungbote/secretsanta-backend/internal/data/repos/testutil"
	httpH "github.com/yungbote/secretsanta-backend/internal/http/handlers"
	httpMW "github.com/yungbote/secretsanta-backend/internal/http/middleware"
	"github.com/yungbote/secretsanta-backend/internal/modules/draw"
	"github.com/yungbote/secretsanta-backend/internal/observability"
	"github.com/yungbote/secretsanta-backend/internal/platform/keylock"
	"github.com/yungbote/secretsanta-backend/internal/platform/sealbox"
	"github.com/yungbote/secretsanta-backend/internal/realtime"
	"github.com/yungbote/secretsanta-backend/internal/services"
)

type testAPI struct {
	srv  *httptest.Server
	auth services.AuthService
	hub  *realtime.Hub
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)

	raffleRepo := repos.NewRaffleRepo(db, log)
	memberRepo := repos.NewMemberRepo(db, log)
	exclusionRepo := repos.NewExclusionRepo(db, log)
	assignmentRepo := repos.NewAssignmentRepo(db, log)
	messageRepo := repos.NewChatMessageRepo(db, log)

	box, err := sealbox.New(make([]byte, 32))
	if err != nil {
		t.Fatalf("sealbox.New: %v", err)
	}
	pseudonyms, err := services.NewPseudonyms([]byte("router test"))
	if err != nil {
		t.Fatalf("NewPseudonyms: %v", err)
	}
	locks := keylock.NewLocal()
	metrics := observability.NewMetrics(observability.MetricsConfig{Enabled: true})
	hub := realtime.NewHub(log)
	routing := services.NewRoutingTable(log, assignmentRepo)
	store := services.NewAssignmentStore(db, log, raffleRepo, assignmentRepo)
	auth := services.NewAuthService(log, "router-test-secret", time.Hour)
	relay := services.NewRelay(log, services.RelayConfig{}, auth, raffleRepo, memberRepo, messageRepo,
		routing, box, pseudonyms, &realtime.HubEmitter{Hub: hub}, metrics)

	router := NewRouter(RouterConfig{
		AuthMiddleware: httpMW.NewAuthMiddleware(log, auth),
		HealthHandler:  httpH.NewHealthHandler(db),
		RaffleHandler: httpH.NewRaffleHandler(log, services.NewRaffleService(db, log, locks,
			raffleRepo, memberRepo, exclusionRepo, assignmentRepo, messageRepo, routing)),
		ExclusionHandler: httpH.NewExclusionHandler(log, services.NewExclusionService(db, log, locks,
			raffleRepo, memberRepo, exclusionRepo)),
		DrawHandler: httpH.NewDrawHandler(log, services.NewDrawService(db, log, locks, draw.NewEngine(),
			raffleRepo, memberRepo, exclusionRepo, store, metrics)),
		ChatHandler: httpH.NewChatHandler(log, services.NewChatService(log, raffleRepo, memberRepo,
			messageRepo, routing, box, pseudonyms)),
		RelayHandler: httpH.NewRelayHandler(log, relay, hub, nil, metrics),
		Log:          log,
		Metrics:      metrics,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.CloseAll()
		srv.Close()
	})
	return &testAPI{srv: srv, auth: auth, hub: hub}
}

func (a *testAPI) token(t *testing.T) string {
	t.Helper()
	tok, err := a.auth.IssueToken(uuid.New())
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return tok
}

// do sends body as JSON and decodes the response into out when non-nil.
func (a *testAPI) do(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, r)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type idBody struct {
	ID uuid.UUID `json:"id"`
}

type party struct {
	raffleID uuid.UUID
	owner    string
	tokens   []string
	members  []uuid.UUID
}

func (a *testAPI) party(t *testing.T, n int) party {
	t.Helper()
	p := party{owner: a.token(t)}
	var created struct{ Raffle idBody }
	if code := a.do(t, http.MethodPost, "/api/raffles", p.owner, map[string]string{"name": "office"}, &created); code != http.StatusCreated {
		t.Fatalf("create raffle: want=201 got=%d", code)
	}
	p.raffleID = created.Raffle.ID
	for i := 0; i < n; i++ {
		tok := a.token(t)
		var joined struct{ Member idBody }
		code := a.do(t, http.MethodPost, "/api/raffles/"+p.raffleID.String()+"/join", tok,
			map[string]string{"display_name": "member", "wishlist": "socks"}, &joined)
		if code != http.StatusCreated {
			t.Fatalf("join: want=201 got=%d", code)
		}
		p.tokens = append(p.tokens, tok)
		p.members = append(p.members, joined.Member.ID)
	}
	return p
}

func (p party) path(suffix string) string { return "/api/raffles/" + p.raffleID.String() + suffix }

func TestRouter_HealthAndAuth(t *testing.T) {
	api := newTestAPI(t)

	resp, err := http.Get(api.srv.URL + "/healthcheck")
	if err != nil {
		t.Fatalf("healthcheck: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthcheck: want=200 got=%d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatalf("X-Request-Id header missing")
	}

	var eb errorBody
	if code := api.do(t, http.MethodPost, "/api/raffles", "", map[string]string{"name": "x"}, &eb); code != http.StatusUnauthorized {
		t.Fatalf("no token: want=401 got=%d", code)
	}
	if eb.Error.Code != "unauthorized" {
		t.Fatalf("no token code: want=unauthorized got=%s", eb.Error.Code)
	}
	if code := api.do(t, http.MethodGet, "/api/raffles/not-a-uuid", api.token(t), nil, nil); code != http.StatusBadRequest {
		t.Fatalf("bad id: want=400 got=%d", code)
	}
}

func TestRouter_DrawLifecycle(t *testing.T) {
	api := newTestAPI(t)
	p := api.party(t, 4)

	var eb errorBody
	self := map[string]uuid.UUID{"member_a_id": p.members[0], "member_b_id": p.members[0]}
	if code := api.do(t, http.MethodPost, p.path("/exclusions"), p.owner, self, &eb); code != http.StatusBadRequest || eb.Error.Code != "self_exclusion" {
		t.Fatalf("self exclusion: want=400/self_exclusion got=%d/%s", code, eb.Error.Code)
	}
	pair := map[string]uuid.UUID{"member_a_id": p.members[0], "member_b_id": p.members[1]}
	if code := api.do(t, http.MethodPost, p.path("/exclusions"), p.tokens[0], pair, nil); code != http.StatusForbidden {
		t.Fatalf("member adds exclusion: want=403 got=%d", code)
	}
	if code := api.do(t, http.MethodPost, p.path("/exclusions"), p.owner, pair, nil); code != http.StatusCreated {
		t.Fatalf("add exclusion: want=201 got=%d", code)
	}
	eb = errorBody{}
	if code := api.do(t, http.MethodPost, p.path("/exclusions"), p.owner, pair, &eb); code != http.StatusConflict || eb.Error.Code != "duplicate_exclusion" {
		t.Fatalf("duplicate exclusion: want=409/duplicate_exclusion got=%d/%s", code, eb.Error.Code)
	}

	eb = errorBody{}
	if code := api.do(t, http.MethodGet, p.path("/my-assignment"), p.tokens[0], nil, &eb); code != http.StatusConflict || eb.Error.Code != "not_drawn_yet" {
		t.Fatalf("assignment before draw: want=409/not_drawn_yet got=%d/%s", code, eb.Error.Code)
	}

	if code := api.do(t, http.MethodPost, p.path("/draw"), p.owner, nil, nil); code != http.StatusOK {
		t.Fatalf("draw: want=200 got=%d", code)
	}
	eb = errorBody{}
	if code := api.do(t, http.MethodPost, p.path("/draw"), p.owner, nil, &eb); code != http.StatusConflict || eb.Error.Code != "already_drawn" {
		t.Fatalf("second draw: want=409/already_drawn got=%d/%s", code, eb.Error.Code)
	}
	eb = errorBody{}
	other := map[string]uuid.UUID{"member_a_id": p.members[2], "member_b_id": p.members[3]}
	if code := api.do(t, http.MethodPost, p.path("/exclusions"), p.owner, other, &eb); code != http.StatusConflict || eb.Error.Code != "locked" {
		t.Fatalf("exclusion after draw: want=409/locked got=%d/%s", code, eb.Error.Code)
	}

	var mine struct {
		Assignment struct {
			ReceiverID uuid.UUID `json:"receiver_id"`
		}
	}
	if code := api.do(t, http.MethodGet, p.path("/my-assignment"), p.tokens[0], nil, &mine); code != http.StatusOK {
		t.Fatalf("my-assignment: want=200 got=%d", code)
	}
	if r := mine.Assignment.ReceiverID; r == p.members[0] || r == p.members[1] || r == uuid.Nil {
		t.Fatalf("receiver violates exclusion or self: %s", r)
	}
}

func TestRouter_InfeasibleDraw(t *testing.T) {
	api := newTestAPI(t)
	p := api.party(t, 3)
	pair := map[string]uuid.UUID{"member_a_id": p.members[0], "member_b_id": p.members[1]}
	if code := api.do(t, http.MethodPost, p.path("/exclusions"), p.owner, pair, nil); code != http.StatusCreated {
		t.Fatalf("add exclusion: want=201 got=%d", code)
	}
	var eb errorBody
	if code := api.do(t, http.MethodPost, p.path("/draw"), p.owner, nil, &eb); code != http.StatusUnprocessableEntity {
		t.Fatalf("draw: want=422 got=%d", code)
	}
	if eb.Error.Code != "infeasible_constraints" {
		t.Fatalf("code: want=infeasible_constraints got=%s", eb.Error.Code)
	}
	if eb.Error.Details["hint"] != draw.HintAddParticipants || eb.Error.Details["members"] != float64(3) {
		t.Fatalf("details: got=%v", eb.Error.Details)
	}
	// The failed draw must leave the raffle open.
	if code := api.do(t, http.MethodDelete, p.path("/exclusions/"+uuid.NewString()), p.owner, nil, nil); code != http.StatusNotFound {
		t.Fatalf("remove unknown exclusion: want=404 got=%d", code)
	}
}

func dialRelay(t *testing.T, api *testAPI, p party, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u := "ws" + strings.TrimPrefix(api.srv.URL, "http") + p.path("/chat/ws") + "?token=" + token
	return websocket.DefaultDialer.Dial(u, nil)
}

func readView(t *testing.T, conn *websocket.Conn) services.MessageView {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var v services.MessageView
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}

func TestRouter_RelayEndToEnd(t *testing.T) {
	api := newTestAPI(t)
	p := api.party(t, 3)

	early, _, err := dialRelay(t, api, p, p.tokens[0])
	if err != nil {
		t.Fatalf("dial before draw: %v", err)
	}
	if err := early.WriteJSON(map[string]string{"content": "hi", "role": "santa"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	_ = early.SetReadDeadline(time.Now().Add(3 * time.Second))
	var ef services.ErrorFrame
	if err := early.ReadJSON(&ef); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if ef.Error.Code != "not_drawn_yet" {
		t.Fatalf("frame before draw: want=not_drawn_yet got=%s", ef.Error.Code)
	}
	early.Close()

	_, resp, err := dialRelay(t, api, p, "garbage")
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("dial with bad token: want 401 got resp=%v err=%v", resp, err)
	}

	if code := api.do(t, http.MethodPost, p.path("/draw"), p.owner, nil, nil); code != http.StatusOK {
		t.Fatalf("draw: want=200 got=%d", code)
	}
	var mine struct {
		Assignment struct {
			ReceiverID uuid.UUID `json:"receiver_id"`
		}
	}
	api.do(t, http.MethodGet, p.path("/my-assignment"), p.tokens[0], nil, &mine)
	gifteeIdx := -1
	for i, id := range p.members {
		if id == mine.Assignment.ReceiverID {
			gifteeIdx = i
		}
	}
	if gifteeIdx < 0 {
		t.Fatalf("receiver %s is not a member", mine.Assignment.ReceiverID)
	}

	santaConn, _, err := dialRelay(t, api, p, p.tokens[0])
	if err != nil {
		t.Fatalf("dial santa: %v", err)
	}
	defer santaConn.Close()
	gifteeConn, _, err := dialRelay(t, api, p, p.tokens[gifteeIdx])
	if err != nil {
		t.Fatalf("dial giftee: %v", err)
	}
	defer gifteeConn.Close()

	frame := map[string]string{"content": "what size are you?", "role": "santa", "clientId": "c-1"}
	if err := santaConn.WriteJSON(frame); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	got := readView(t, gifteeConn)
	if got.Content != "what size are you?" {
		t.Fatalf("giftee content: want=%q got=%q", "what size are you?", got.Content)
	}
	if got.SantaID == p.members[0] {
		t.Fatalf("giftee saw the santa's member id")
	}
	echo := readView(t, santaConn)
	if echo.ID != got.ID || echo.SantaID != p.members[0] {
		t.Fatalf("santa echo: want id=%s santa=%s got id=%s santa=%s", got.ID, p.members[0], echo.ID, echo.SantaID)
	}

	var unread struct{ FromSanta, Total int64 }
	api.do(t, http.MethodGet, p.path("/chat/unread"), p.tokens[gifteeIdx], nil, &unread)
	if unread.FromSanta != 1 {
		t.Fatalf("unread fromSanta: want=1 got=%d", unread.FromSanta)
	}
	var hist struct{ Messages []services.MessageView }
	if code := api.do(t, http.MethodGet, p.path("/chat/santa"), p.tokens[gifteeIdx], nil, &hist); code != http.StatusOK {
		t.Fatalf("history: want=200 got=%d", code)
	}
	if len(hist.Messages) != 1 || hist.Messages[0].ID != got.ID {
		t.Fatalf("history: want [%s] got=%v", got.ID, hist.Messages)
	}
	api.do(t, http.MethodGet, p.path("/chat/unread"), p.tokens[gifteeIdx], nil, &unread)
	if unread.Total != 0 {
		t.Fatalf("unread after history: want=0 got=%d", unread.Total)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, http.MethodGet, "/api/raffles/"+uuid.NewString(), api.token(t), nil, nil)

	resp, err := http.Get(api.srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `santa_api_requests_total{method="GET",route="/api/raffles/:id",status="404"} 1.000000`) {
		t.Fatalf("metrics body missing request series:\n%s", body)
	}
}
