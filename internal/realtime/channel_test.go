package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sharat789/steam-bazaar-fev2/internal/models"
)

// fakeServer is a minimal realtime-server stand-in: it records every
// command the channel sends and can push events back.
type fakeServer struct {
	t        *testing.T
	srv      *httptest.Server
	received chan Envelope

	mu    sync.Mutex
	conns []*websocket.Conn
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{t: t, received: make(chan Envelope, 64)}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.mu.Lock()
		fs.conns = append(fs.conns, conn)
		fs.mu.Unlock()
		for {
			var env Envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			fs.received <- env
		}
	}))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) wsURL() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http")
}

// push sends an event on the most recent connection.
func (fs *fakeServer) push(event string, payload interface{}) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.conns) == 0 {
		fs.t.Fatal("push with no connection")
	}
	data, _ := json.Marshal(payload)
	conn := fs.conns[len(fs.conns)-1]
	if err := conn.WriteJSON(Envelope{Event: event, Data: data}); err != nil {
		fs.t.Fatalf("push %s: %v", event, err)
	}
}

func (fs *fakeServer) next(t *testing.T) Envelope {
	t.Helper()
	select {
	case env := <-fs.received:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for command")
		return Envelope{}
	}
}

func connectedChannel(t *testing.T, fs *fakeServer, sessionID string, v Viewer) *Channel {
	t.Helper()
	ch := NewChannel(fs.wsURL(), zap.NewNop())
	if err := ch.Connect(sessionID, v); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(ch.Disconnect)
	return ch
}

func TestCommandsFailWhenDisconnected(t *testing.T) {
	ch := NewChannel("ws://127.0.0.1:1/ws", zap.NewNop())

	if ch.SendChatMessage("hello") {
		t.Error("SendChatMessage must fail while disconnected")
	}
	if ch.SendReaction("fire") {
		t.Error("SendReaction must fail while disconnected")
	}
	if ch.SetShowcase("p1") {
		t.Error("SetShowcase must fail while disconnected")
	}
	if ch.SendProductClick("p1") {
		t.Error("SendProductClick must fail while disconnected")
	}
}

func TestConnectIssuesJoinCommand(t *testing.T) {
	fs := newFakeServer(t)
	connectedChannel(t, fs, "s1", Viewer{UserID: 42, UserName: "alice"})

	env := fs.next(t)
	if env.Event != CmdJoinSession {
		t.Fatalf("first command = %q, want %q", env.Event, CmdJoinSession)
	}
	var join JoinPayload
	if err := json.Unmarshal(env.Data, &join); err != nil {
		t.Fatalf("join payload: %v", err)
	}
	if join.SessionID != "s1" || join.UserID == nil || *join.UserID != 42 {
		t.Errorf("join payload = %+v, want sessionId s1 userId 42", join)
	}
}

func TestSendChatMessageValidation(t *testing.T) {
	fs := newFakeServer(t)
	ch := connectedChannel(t, fs, "s1", Viewer{UserID: 42, UserName: "alice"})
	fs.next(t) // join

	if ch.SendChatMessage("") {
		t.Error("empty message must be rejected")
	}
	if ch.SendChatMessage("   ") {
		t.Error("whitespace message must be rejected")
	}

	anon := connectedChannel(t, fs, "s1", Viewer{})
	fs.next(t) // join
	if anon.SendChatMessage("hi") {
		t.Error("message without viewer identity must be rejected")
	}

	if !ch.SendChatMessage("  hello  ") {
		t.Fatal("valid message rejected")
	}
	env := fs.next(t)
	if env.Event != CmdSendMessage {
		t.Fatalf("command = %q, want %q", env.Event, CmdSendMessage)
	}
	var msg MessagePayload
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		t.Fatalf("message payload: %v", err)
	}
	if msg.Message != "hello" {
		t.Errorf("message = %q, want trimmed %q", msg.Message, "hello")
	}
	if msg.UserID != 42 || msg.UserName != "alice" || msg.SessionID != "s1" {
		t.Errorf("payload = %+v", msg)
	}
}

func TestSendReactionAllowsAnonymous(t *testing.T) {
	fs := newFakeServer(t)
	ch := connectedChannel(t, fs, "s1", Viewer{})
	fs.next(t) // join

	if !ch.SendReaction("fire") {
		t.Fatal("anonymous reaction rejected")
	}
	env := fs.next(t)
	var r ReactionPayload
	if err := json.Unmarshal(env.Data, &r); err != nil {
		t.Fatalf("reaction payload: %v", err)
	}
	if env.Event != CmdSendReaction || r.SessionID != "s1" || r.Type != "fire" {
		t.Errorf("got %s %+v, want send-reaction {s1 fire}", env.Event, r)
	}
}

func TestProductClickRequiresIdentity(t *testing.T) {
	fs := newFakeServer(t)
	anon := connectedChannel(t, fs, "s1", Viewer{})
	fs.next(t) // join

	if anon.SendProductClick("p1") {
		t.Error("anonymous product click must be rejected")
	}

	ch := connectedChannel(t, fs, "s1", Viewer{UserID: 7, UserName: "bob"})
	fs.next(t) // join
	if !ch.SendProductClick("p1") {
		t.Fatal("identified product click rejected")
	}
	env := fs.next(t)
	var click ClickPayload
	if err := json.Unmarshal(env.Data, &click); err != nil {
		t.Fatalf("click payload: %v", err)
	}
	if click.ProductID != "p1" || click.UserID != 7 {
		t.Errorf("click payload = %+v", click)
	}
}

func TestSetShowcaseClearSendsNull(t *testing.T) {
	fs := newFakeServer(t)
	ch := connectedChannel(t, fs, "s1", Viewer{UserID: 1, UserName: "c"})
	fs.next(t) // join

	if !ch.SetShowcase("p9") {
		t.Fatal("showcase rejected")
	}
	env := fs.next(t)
	var sc ShowcasePayload
	if err := json.Unmarshal(env.Data, &sc); err != nil {
		t.Fatalf("showcase payload: %v", err)
	}
	if sc.ProductID == nil || *sc.ProductID != "p9" {
		t.Errorf("showcase payload = %+v, want productId p9", sc)
	}

	if !ch.SetShowcase("") {
		t.Fatal("clear rejected")
	}
	env = fs.next(t)
	if !strings.Contains(string(env.Data), `"productId":null`) {
		t.Errorf("clear must send productId null, got %s", env.Data)
	}
}

func TestDisconnectEmitsLeave(t *testing.T) {
	fs := newFakeServer(t)
	ch := connectedChannel(t, fs, "s1", Viewer{UserID: 1, UserName: "a"})
	fs.next(t) // join

	ch.Disconnect()
	env := fs.next(t)
	if env.Event != CmdLeaveSession {
		t.Fatalf("command after disconnect = %q, want %q", env.Event, CmdLeaveSession)
	}
	var sid string
	if err := json.Unmarshal(env.Data, &sid); err != nil || sid != "s1" {
		t.Errorf("leave payload = %s, want bare \"s1\"", env.Data)
	}
	if ch.Connected() {
		t.Error("Connected() must be false after Disconnect")
	}
}

func TestDispatchTypedEvents(t *testing.T) {
	fs := newFakeServer(t)
	ch := connectedChannel(t, fs, "s1", Viewer{UserID: 42, UserName: "alice"})
	fs.next(t) // join

	msgs := make(chan models.ChatMessage, 1)
	counts := make(chan int, 1)
	stats := make(chan models.ReactionStats, 1)
	ch.SetHandlers(Handlers{
		OnMessage:       func(m models.ChatMessage) { msgs <- m },
		OnViewerCount:   func(n int) { counts <- n },
		OnReactionStats: func(s models.ReactionStats) { stats <- s },
	})

	fs.push(EvtNewMessage, models.ChatMessage{ID: "m1", Message: "hey", SessionID: "s1", UserID: 9, UserName: "zoe"})
	select {
	case m := <-msgs:
		if m.ID != "m1" || m.Message != "hey" {
			t.Errorf("message = %+v", m)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("new-message not dispatched")
	}

	// viewer-count data is a bare integer
	fs.push(EvtViewerCount, 17)
	select {
	case n := <-counts:
		if n != 17 {
			t.Errorf("viewer count = %d, want 17", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("viewer-count not dispatched")
	}

	fs.push(EvtReactionStats, models.ReactionStats{SessionID: "s1", Total: 3,
		Percentages: map[string]float64{"fire": 100}})
	select {
	case s := <-stats:
		if s.Total != 3 || s.Percentages["fire"] != 100 {
			t.Errorf("stats = %+v", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reaction-stats not dispatched")
	}
}

func TestMalformedAndUnknownEventsAreSwallowed(t *testing.T) {
	fs := newFakeServer(t)
	ch := connectedChannel(t, fs, "s1", Viewer{UserID: 1, UserName: "a"})
	fs.next(t) // join

	counts := make(chan int, 1)
	ch.SetHandlers(Handlers{OnViewerCount: func(n int) { counts <- n }})

	fs.push(EvtViewerCount, "not-a-number") // malformed
	fs.push("totally-unknown-event", 1)     // unregistered kind
	fs.push(EvtViewerCount, 3)              // view must still be alive

	select {
	case n := <-counts:
		if n != 3 {
			t.Errorf("viewer count = %d, want 3", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel stopped dispatching after malformed payload")
	}
}

func TestReconnectReplacesConnection(t *testing.T) {
	fs := newFakeServer(t)
	ch := connectedChannel(t, fs, "a", Viewer{UserID: 1, UserName: "x"})
	fs.next(t) // join a

	if err := ch.Connect("b", Viewer{UserID: 1, UserName: "x"}); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	defer ch.Disconnect()

	// Old connection sends its leave, new one its join; the join must be
	// scoped to "b".
	sawLeaveA, sawJoinB := false, false
	for i := 0; i < 2; i++ {
		env := fs.next(t)
		switch env.Event {
		case CmdLeaveSession:
			var sid string
			_ = json.Unmarshal(env.Data, &sid)
			if sid == "a" {
				sawLeaveA = true
			}
		case CmdJoinSession:
			var join JoinPayload
			_ = json.Unmarshal(env.Data, &join)
			if join.SessionID == "b" {
				sawJoinB = true
			}
		}
	}
	if !sawLeaveA || !sawJoinB {
		t.Errorf("session switch: leave(a)=%v join(b)=%v, want both", sawLeaveA, sawJoinB)
	}
	if got := ch.SessionID(); got != "b" {
		t.Errorf("SessionID() = %q, want b", got)
	}
}
