package netsync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"duelarena/internal/protocol"
)

var testUpgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// fakeRelay accepts one connection, writes frames, then hands the conn to the test.
func fakeRelay(t *testing.T, frames ...string) (*httptest.Server, chan *websocket.Conn, chan string) {
	t.Helper()
	conns := make(chan *websocket.Conn, 1)
	paths := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.Path
		ws, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		for _, f := range frames {
			_ = ws.WriteMessage(websocket.TextMessage, []byte(f))
		}
		conns <- ws
	}))
	t.Cleanup(srv.Close)
	return srv, conns, paths
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/"
}

func nextEvent(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case ev := <-c.Inbound():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestNewClientID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id := NewClientID()
		if len(id) != IDLength {
			t.Fatalf("id %q has length %d", id, len(id))
		}
		for _, r := range id {
			if !strings.ContainsRune(idChars, r) {
				t.Fatalf("id %q contains %q", id, r)
			}
		}
		seen[id] = true
	}
	if len(seen) < 45 {
		t.Fatalf("ids look far from random: %d unique of 50", len(seen))
	}
}

func TestEndpointURL(t *testing.T) {
	cases := map[string]string{
		"ws://h:8000/ws/": "ws://h:8000/ws/abc123",
		"ws://h:8000/ws":  "ws://h:8000/ws/abc123",
	}
	for base, want := range cases {
		if got := EndpointURL(base, "abc123"); got != want {
			t.Errorf("EndpointURL(%q) = %q, want %q", base, got, want)
		}
	}
}

func TestClientOpensAndReceives(t *testing.T) {
	srv, conns, paths := fakeRelay(t,
		`{"type":"snapshot","payload":[{"id":"bob","x":1,"y":2,"angle":0}]}`,
		`not json`,
		`{"type":"teleport","payload":{}}`,
		`{"type":"leave","payload":{"id":"bob"}}`,
	)
	c := Dial(context.Background(), Options{Endpoint: wsURL(srv)})
	defer c.Close()

	if p := <-paths; p != "/ws/"+c.ID() {
		t.Fatalf("dialed path %q, want /ws/%s", p, c.ID())
	}

	ev := nextEvent(t, c)
	if !ev.Opened || ev.ID != c.ID() {
		t.Fatalf("expected Opened with own id, got %+v", ev)
	}
	ev = nextEvent(t, c)
	if snap, ok := ev.Msg.(protocol.Snapshot); !ok || len(snap.Peers) != 1 {
		t.Fatalf("expected snapshot, got %+v", ev)
	}
	// malformed frames in between are discarded
	ev = nextEvent(t, c)
	if l, ok := ev.Msg.(protocol.Leave); !ok || l.ID != "bob" {
		t.Fatalf("expected leave, got %+v", ev)
	}
	<-conns
}

func TestClientSendReachesRelay(t *testing.T) {
	srv, conns, _ := fakeRelay(t)
	c := Dial(context.Background(), Options{Endpoint: wsURL(srv)})
	defer c.Close()

	nextEvent(t, c) // opened
	ws := <-conns
	defer ws.Close()

	c.Send(protocol.Update{PeerRecord: protocol.PeerRecord{ID: c.ID(), X: 10, Y: 20, Angle: 0.5}})

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	msg, err := protocol.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	up, ok := msg.(protocol.Update)
	if !ok || up.ID != c.ID() || up.X != 10 || up.Y != 20 {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestClientReportsDrop(t *testing.T) {
	srv, conns, _ := fakeRelay(t)
	c := Dial(context.Background(), Options{Endpoint: wsURL(srv)})
	defer c.Close()

	nextEvent(t, c)
	ws := <-conns
	_ = ws.Close()

	ev := nextEvent(t, c)
	if !ev.Closed {
		t.Fatalf("expected Closed event, got %+v", ev)
	}
}

func TestClientDialFailureStaysSilent(t *testing.T) {
	c := Dial(context.Background(), Options{Endpoint: "ws://127.0.0.1:1/ws/"})
	defer c.Close()

	select {
	case ev := <-c.Inbound():
		t.Fatalf("expected no events, got %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
	// sending while offline is a no-op
	c.Send(protocol.Update{PeerRecord: protocol.PeerRecord{ID: "x"}})
}

func TestClientCloseIsIdempotent(t *testing.T) {
	srv, _, _ := fakeRelay(t)
	c := Dial(context.Background(), Options{Endpoint: wsURL(srv)})
	nextEvent(t, c)
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	c.Send(protocol.Update{PeerRecord: protocol.PeerRecord{ID: "x"}})
}
