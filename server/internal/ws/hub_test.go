package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quietmark/quietmark/pkg/types"
	"github.com/quietmark/quietmark/server/internal/alerts"
	"github.com/quietmark/quietmark/server/internal/config"
	"github.com/quietmark/quietmark/server/internal/store"
	wsHub "github.com/quietmark/quietmark/server/internal/ws"
)

const testInterval = 20 * time.Millisecond

// --- helpers ----------------------------------------------------------------

func newStore(recs ...types.AuditRecord) *store.Store {
	st := store.New(5 * time.Minute)
	for _, r := range recs {
		st.Put(r)
	}
	return st
}

func record(page string, score int) types.AuditRecord {
	return types.AuditRecord{
		ID:           "test-id",
		PageURL:      page,
		Score:        score,
		Rating:       types.RatingFor(score),
		RawValue:     3200,
		DisplayValue: "3,200 ms",
	}
}

// startHub serves the hub from a test HTTP server and starts its Run loop.
func startHub(t *testing.T, st *store.Store, al *alerts.Engine) (wsURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	if al == nil {
		al = alerts.New(config.AlertsConfig{})
	}
	hub = wsHub.New(st, al, testInterval)
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(hub)
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	wsURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	return wsURL, hub, cancelFn
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesImmediateSnapshot(t *testing.T) {
	wsURL, _, _ := startHub(t, newStore(record("https://example.com/", 88)), nil)

	m := readMessage(t, dial(t, wsURL))
	if m["event"] != "audit_snapshot" {
		t.Errorf("event: got %v, want audit_snapshot", m["event"])
	}
	data, ok := m["data"].(map[string]interface{})
	if !ok {
		t.Fatal("data: missing or wrong type")
	}
	if data["generated_at"] == nil || data["generated_at"] == "" {
		t.Error("generated_at: missing")
	}
}

func TestHub_MessageContainsPages(t *testing.T) {
	wsURL, _, _ := startHub(t, newStore(
		record("https://a.example/", 90),
		record("https://b.example/", 40),
	), nil)

	m := readMessage(t, dial(t, wsURL))
	data := m["data"].(map[string]interface{})
	pages, ok := data["pages"].([]interface{})
	if !ok {
		t.Fatal("pages: missing or wrong type")
	}
	if len(pages) != 2 {
		t.Errorf("pages: got %d, want 2", len(pages))
	}
}

func TestHub_MessageContainsFiringAlerts(t *testing.T) {
	al := alerts.New(config.AlertsConfig{
		Rules: []config.AlertRule{
			{Name: "slow-page", Condition: "score < 50", Severity: "warning"},
		},
	})
	st := newStore()
	rec := record("https://slow.example/", 20)
	st.Put(rec)
	al.Evaluate(&rec)

	wsURL, _, _ := startHub(t, st, al)

	m := readMessage(t, dial(t, wsURL))
	alertList, ok := m["alerts"].([]interface{})
	if !ok {
		t.Fatal("alerts: missing or wrong type")
	}
	if len(alertList) != 1 {
		t.Fatalf("alerts: got %d, want 1", len(alertList))
	}
	a := alertList[0].(map[string]interface{})
	if a["rule_name"] != "slow-page" {
		t.Errorf("rule_name: got %v", a["rule_name"])
	}
	if a["state"] != "firing" {
		t.Errorf("state: got %v, want firing", a["state"])
	}
}

func TestHub_EmptyStore_EmptyPages(t *testing.T) {
	wsURL, _, _ := startHub(t, newStore(), nil)

	m := readMessage(t, dial(t, wsURL))
	data := m["data"].(map[string]interface{})
	pages := data["pages"].([]interface{})
	if len(pages) != 0 {
		t.Errorf("pages: got %d, want 0", len(pages))
	}
}

func TestHub_CountSubscribers(t *testing.T) {
	wsURL, hub, _ := startHub(t, newStore(), nil)

	for i := 0; i < 3; i++ {
		readMessage(t, dial(t, wsURL))
	}

	time.Sleep(10 * time.Millisecond)
	if n := hub.Count(); n != 3 {
		t.Errorf("Count: got %d, want 3", n)
	}
}

func TestHub_CountDecreasesOnDisconnect(t *testing.T) {
	wsURL, hub, _ := startHub(t, newStore(), nil)

	conn := dial(t, wsURL)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	if n := hub.Count(); n != 1 {
		t.Errorf("Count before disconnect: got %d, want 1", n)
	}

	conn.Close()
	time.Sleep(50 * time.Millisecond) // let readLoop detect the close

	if n := hub.Count(); n != 0 {
		t.Errorf("Count after disconnect: got %d, want 0", n)
	}
}

func TestHub_BroadcastPicksUpNewPages(t *testing.T) {
	st := newStore()
	wsURL, _, _ := startHub(t, st, nil)

	conn := dial(t, wsURL)
	readMessage(t, conn) // consume immediate snapshot (empty store)

	st.Put(record("https://new.example/", 75))

	// The next tick should carry the new page.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("no broadcast carried the new page")
		}
		m := readMessage(t, conn)
		pages := m["data"].(map[string]interface{})["pages"].([]interface{})
		if len(pages) == 0 {
			continue // tick raced the Put
		}
		p := pages[0].(map[string]interface{})
		if p["page_url"] != "https://new.example/" {
			t.Errorf("page_url: got %v, want https://new.example/", p["page_url"])
		}
		return
	}
}

func TestHub_AllSubscribersReceiveBroadcast(t *testing.T) {
	wsURL, _, _ := startHub(t, newStore(record("https://a.example/", 90)), nil)

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = dial(t, wsURL)
	}

	for i, conn := range conns {
		m := readMessage(t, conn)
		if m["event"] != "audit_snapshot" {
			t.Errorf("subscriber %d: event: got %v, want audit_snapshot", i, m["event"])
		}
	}
}

func TestHub_CancelContextClosesConnections(t *testing.T) {
	wsURL, hub, cancel := startHub(t, newStore(), nil)

	conn := dial(t, wsURL)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	cancel()

	time.Sleep(50 * time.Millisecond)
	if n := hub.Count(); n != 0 {
		t.Errorf("Count after cancel: got %d, want 0", n)
	}
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	hub := wsHub.New(newStore(), alerts.New(config.AlertsConfig{}), testInterval)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}
