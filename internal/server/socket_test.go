package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/youmna-rabie/incident-relay/internal/broker"
	"github.com/youmna-rabie/incident-relay/internal/config"
	"github.com/youmna-rabie/incident-relay/internal/relay"
)

func dialDashboard(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/dashboard/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var frame map[string]any
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

func post(t *testing.T, ts *httptest.Server, body string) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/update-call", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("webhook returned %d", resp.StatusCode)
	}
}

func TestDashboardSocket_EndToEnd(t *testing.T) {
	hub := broker.NewHub(0)
	cfg := config.BrokerConfig{Driver: config.DriverMemory, Codec: config.CodecJSON}
	srv, _ := testSetup(t, relay.New(relay.FromConfig(cfg, hub), true), hub)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn := dialDashboard(t, ts)

	if f := readFrame(t, conn); f["kind"] != "connection" || f["connected"] != false {
		t.Fatalf("first frame = %v", f)
	}
	if f := readFrame(t, conn); f["kind"] != "connection" || f["connected"] != true {
		t.Fatalf("second frame = %v", f)
	}

	post(t, ts, `{"type":"dispatch_emergency_services","data":{"service_type":"firefighter","priority":"high"}}`)
	f := readFrame(t, conn)
	if f["kind"] != "incident" || f["alert"] != false {
		t.Fatalf("incident frame = %v", f)
	}
	card := f["card"].(map[string]any)
	if card["title"] != "Dispatch: Firefighter" || card["high_priority"] != true {
		t.Errorf("card = %v", card)
	}
	event := f["event"].(map[string]any)
	if event["timestamp"] != "2026-03-14T09:26:53.589Z" {
		t.Errorf("event timestamp = %v", event["timestamp"])
	}

	post(t, ts, `{"type":"transfer_to_human","data":{"transfer":true}}`)
	if f := readFrame(t, conn); f["kind"] != "incident" || f["alert"] != true {
		t.Fatalf("transfer frame = %v", f)
	}
	if f := readFrame(t, conn); f["kind"] != "alert" || f["active"] != true {
		t.Fatalf("alert frame = %v", f)
	}

	if err := conn.WriteJSON(map[string]string{"kind": "dismiss"}); err != nil {
		t.Fatal(err)
	}
	if f := readFrame(t, conn); f["kind"] != "alert" || f["active"] != false {
		t.Fatalf("dismiss frame = %v", f)
	}
}

func TestDashboardSocket_IsolatedPerConnection(t *testing.T) {
	hub := broker.NewHub(0)
	cfg := config.BrokerConfig{Driver: config.DriverMemory, Codec: config.CodecJSON}
	srv, _ := testSetup(t, relay.New(relay.FromConfig(cfg, hub), true), hub)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	a, b := dialDashboard(t, ts), dialDashboard(t, ts)
	for _, c := range []*websocket.Conn{a, b} {
		readFrame(t, c)
		readFrame(t, c)
	}

	post(t, ts, `{"type":"transfer_to_human","data":{}}`)
	for _, c := range []*websocket.Conn{a, b} {
		readFrame(t, c)
		readFrame(t, c)
	}

	// Dismissing on one tab leaves the other's alert alone.
	a.WriteJSON(map[string]string{"kind": "dismiss"})
	if f := readFrame(t, a); f["kind"] != "alert" || f["active"] != false {
		t.Fatalf("dismiss frame = %v", f)
	}
	b.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var frame map[string]any
	if err := b.ReadJSON(&frame); err == nil {
		t.Errorf("other tab received %v", frame)
	}
}

func TestDashboardSocket_ClosingUnsubscribes(t *testing.T) {
	hub := broker.NewHub(0)
	cfg := config.BrokerConfig{Driver: config.DriverMemory, Codec: config.CodecJSON}
	srv, _ := testSetup(t, relay.New(relay.FromConfig(cfg, hub), true), hub)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn := dialDashboard(t, ts)
	readFrame(t, conn)
	readFrame(t, conn)
	if n := hub.Subscribers("incident-channel"); n != 1 {
		t.Fatalf("subscribers = %d, want 1", n)
	}

	conn.Close()
	deadline := time.Now().Add(3 * time.Second)
	for hub.Subscribers("incident-channel") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription still open after the socket closed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDashboardSocket_NotConfigured(t *testing.T) {
	srv, _ := testSetup(t, configuredRelay(&recordingPublisher{}), nil)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn := dialDashboard(t, ts)
	if f := readFrame(t, conn); f["kind"] != "connection" || f["connected"] != false {
		t.Fatalf("first frame = %v", f)
	}
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var frame map[string]any
	if err := conn.ReadJSON(&frame); err == nil {
		t.Errorf("unconfigured dashboard sent %v", frame)
	}
}
