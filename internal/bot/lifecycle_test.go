package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"

	"github.com/EgorLis/bitacbot/internal/config"
	"github.com/EgorLis/bitacbot/internal/dedup"
	"github.com/EgorLis/bitacbot/internal/nostr"
)

// fakeRelay отвечает EOSE на REQ и OK на EVENT, всё полученное складывает в каналы.
type fakeRelay struct {
	server *httptest.Server

	mu   sync.Mutex
	conn *websocket.Conn

	reqs   chan []json.RawMessage
	events chan *nostr.Event
}

func newFakeRelay(t *testing.T) *fakeRelay {
	t.Helper()
	fr := &fakeRelay{
		reqs:   make(chan []json.RawMessage, 8),
		events: make(chan *nostr.Event, 8),
	}
	upgrader := websocket.Upgrader{}
	fr.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fr.mu.Lock()
		fr.conn = conn
		fr.mu.Unlock()
		fr.serve(conn)
	}))
	t.Cleanup(fr.server.Close)
	return fr
}

func (fr *fakeRelay) url() string {
	return "ws" + strings.TrimPrefix(fr.server.URL, "http")
}

func (fr *fakeRelay) write(msg []byte) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	if fr.conn != nil {
		_ = fr.conn.WriteMessage(websocket.TextMessage, msg)
	}
}

func (fr *fakeRelay) serve(conn *websocket.Conn) {
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg []json.RawMessage
		if err := json.Unmarshal(data, &msg); err != nil || len(msg) < 2 {
			continue
		}
		var label string
		_ = json.Unmarshal(msg[0], &label)
		switch label {
		case "REQ":
			fr.reqs <- msg
			fr.write([]byte(`["EOSE",` + string(msg[1]) + `]`))
		case "EVENT":
			var ev nostr.Event
			if err := json.Unmarshal(msg[1], &ev); err != nil {
				continue
			}
			fr.events <- &ev
			fr.write([]byte(`["OK","` + ev.ID + `",true,""]`))
		}
	}
}

func (fr *fakeRelay) send(t *testing.T, subID string, ev *nostr.Event) {
	t.Helper()
	data, err := json.Marshal([]any{"EVENT", subID, ev})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	fr.write(data)
}

func waitFor[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		var zero T
		return zero
	}
}

func TestBotStartReplyStop(t *testing.T) {
	relay := newFakeRelay(t)
	client, _ := newExplorer(t, http.StatusOK, statsBody(200000000, 50000000))
	logger := zaptest.NewLogger(t)

	pool, err := nostr.NewPool([]string{relay.url()}, dedup.New(100, time.Minute), logger)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	b := New(mustKeys(t), client, logger)
	b.SetPool(pool)
	b.SetMetrics(NewMetrics())
	b.SetProfile(config.Profile{
		Name:         "Bitac Bot",
		About:        "balances",
		IntroMessage: "hello nostr",
		Announce:     true,
	})

	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer b.Stop()

	if err := b.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}

	meta := waitFor(t, relay.events, "metadata event")
	if meta.Kind != nostr.KindMetadata {
		t.Fatalf("first event kind = %d, want metadata", meta.Kind)
	}
	var profile map[string]string
	if err := json.Unmarshal([]byte(meta.Content), &profile); err != nil {
		t.Fatalf("metadata content: %v", err)
	}
	if profile["name"] != "Bitac Bot" || profile["about"] != "balances" {
		t.Errorf("metadata = %v", profile)
	}
	if _, ok := profile["picture"]; ok {
		t.Error("empty picture should be omitted")
	}

	intro := waitFor(t, relay.events, "intro note")
	if intro.Kind != nostr.KindTextNote || intro.Content != "hello nostr" {
		t.Errorf("intro = %+v", intro)
	}

	req := waitFor(t, relay.reqs, "REQ")
	var subID string
	if err := json.Unmarshal(req[1], &subID); err != nil {
		t.Fatalf("REQ sub id: %v", err)
	}
	var filter struct {
		Kinds []int    `json:"kinds"`
		P     []string `json:"#p"`
		Since int64    `json:"since"`
	}
	if err := json.Unmarshal(req[2], &filter); err != nil {
		t.Fatalf("REQ filter: %v", err)
	}
	if len(filter.Kinds) != 1 || filter.Kinds[0] != nostr.KindTextNote {
		t.Errorf("filter kinds = %v", filter.Kinds)
	}
	if len(filter.P) != 1 || filter.P[0] != b.PublicKey() {
		t.Errorf("filter #p = %v, want bot pubkey", filter.P)
	}
	if filter.Since == 0 {
		t.Error("filter since not set")
	}

	if got := testutil.ToFloat64(b.metrics.relaysConnected); got != 1 {
		t.Errorf("relays_connected = %v, want 1", got)
	}

	user := mustKeys(t)
	ev := &nostr.Event{
		CreatedAt: time.Now().Unix(),
		Kind:      nostr.KindTextNote,
		Tags:      nostr.Tags{{"p", b.PublicKey()}},
		Content:   "balance of " + testAddress + "?",
	}
	if err := ev.Sign(user); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	relay.send(t, subID, ev)

	reply := waitFor(t, relay.events, "reply")
	if reply.Content != "₿ 1.50000000" {
		t.Errorf("reply = %q, want ₿ 1.50000000", reply.Content)
	}
	if e := reply.Tags.Find("e"); e == nil || e[1] != ev.ID {
		t.Errorf("reply e tag = %v, want %s", e, ev.ID)
	}

	b.Stop()
	b.Stop()
	if pool.Connected() != 0 {
		t.Errorf("relays still connected after Stop: %d", pool.Connected())
	}
}

func TestBotStartWithoutPool(t *testing.T) {
	b := New(mustKeys(t), nil, nil)
	if err := b.Start(context.Background()); err == nil {
		t.Fatal("Start without pool should fail")
	}
}

func TestBotStartUnreachableRelay(t *testing.T) {
	relay := newFakeRelay(t)
	url := relay.url()
	relay.server.Close()

	pool, err := nostr.NewPool([]string{url}, nil, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	b := New(mustKeys(t), nil, zaptest.NewLogger(t))
	b.SetPool(pool)
	if err := b.Start(context.Background()); err == nil {
		b.Stop()
		t.Fatal("Start should fail when no relay is reachable")
	}
	b.Stop()
}
