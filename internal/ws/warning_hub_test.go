package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"strobeguard/internal/flash"
	"strobeguard/internal/session"
)

func dialTestServer(t *testing.T, hub *WarningHub, sourceID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewHandler(hub, nil))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/warnings/" + sourceID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// Registration happens server-side right after the upgrade; wait for it
	// to land before broadcasting.
	deadline := time.Now().Add(2 * time.Second)
	for !hub.HasClients(sourceID) {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func TestHubBroadcastsWarnings(t *testing.T) {
	hub := NewWarningHub(nil)
	conn := dialTestServer(t, hub, "cam-1")

	hub.HandleWarning(&session.Warning{
		ID:              "w-1",
		SourceID:        "cam-1",
		Kind:            flash.KindRed,
		FlashesInWindow: 3,
		TotalFlashCount: 7,
		PositionMs:      1625,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}

	var msg WarningMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if msg.Type != "flash_warning" {
		t.Errorf("Type = %q", msg.Type)
	}
	if msg.WarningID != "w-1" || msg.SourceID != "cam-1" || msg.Kind != "red" {
		t.Errorf("message = %+v", msg)
	}
	if msg.FlashesInWindow != 3 || msg.PositionMs != 1625 {
		t.Errorf("message = %+v", msg)
	}
}

func TestHubIsolatesSources(t *testing.T) {
	hub := NewWarningHub(nil)
	conn := dialTestServer(t, hub, "cam-1")

	// A warning for another source must not reach this subscriber.
	hub.HandleWarning(&session.Warning{ID: "w-other", SourceID: "cam-2", Kind: flash.KindGeneral})
	hub.HandleWarning(&session.Warning{ID: "w-mine", SourceID: "cam-1", Kind: flash.KindGeneral})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var msg WarningMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if msg.WarningID != "w-mine" {
		t.Errorf("received %q, want only the cam-1 warning", msg.WarningID)
	}
}

func TestHubRegistrationBookkeeping(t *testing.T) {
	hub := NewWarningHub(nil)

	if hub.HasClients("cam-1") {
		t.Error("empty hub reports clients")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d, want 0", hub.ClientCount())
	}

	// HandleWarning with no subscribers is a no-op.
	hub.HandleWarning(&session.Warning{ID: "w-1", SourceID: "cam-1", Kind: flash.KindGeneral})

	conn := dialTestServer(t, hub, "cam-1")
	if got := hub.ClientCount(); got != 1 {
		t.Errorf("ClientCount = %d, want 1", got)
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.HasClients("cam-1") {
		if time.Now().After(deadline) {
			t.Fatal("client never unregistered after close")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHandlerRejectsMissingSourceID(t *testing.T) {
	hub := NewWarningHub(nil)
	srv := httptest.NewServer(NewHandler(hub, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/warnings/"
	if _, _, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Error("dial without source_id succeeded")
	}
}
