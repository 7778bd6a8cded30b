package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/joythm/internal/store"
)

func TestAPI_SettingsWorkflow(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	srv := newTestServer(t, Config{Store: s})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	// 1. Store an override
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/settings/emission_policy", bytes.NewBufferString(`{"value": "on-change"}`))
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("PUT error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	// 2. List settings
	resp, err = client.Get(ts.URL + "/api/settings")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	var listed struct {
		Settings []struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		} `json:"settings"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()

	if len(listed.Settings) != 1 || listed.Settings[0].Value != "on-change" {
		t.Fatalf("unexpected settings %+v", listed.Settings)
	}

	// 3. The store sees the same value
	m, err := s.Settings().Map()
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	if m["emission_policy"] != "on-change" {
		t.Errorf("stored value = %q", m["emission_policy"])
	}

	// 4. Delete it
	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/settings/emission_policy", nil)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("DELETE error = %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	resp.Body.Close()
}

func TestAPI_HealthCheck(t *testing.T) {
	srv := newTestServer(t, Config{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
	}
	json.NewDecoder(resp.Body).Decode(&health)

	if health.Status != "ok" {
		t.Errorf("status = %s, want ok", health.Status)
	}
}

func TestAPI_Stream(t *testing.T) {
	srv := newTestServer(t, Config{Source: testSource()})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}

	var msg struct {
		Devices []struct {
			Name  string `json:"name"`
			State string `json:"state"`
		} `json:"devices"`
		Scanning  bool  `json:"scanning"`
		Timestamp int64 `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to decode message: %v", err)
	}
	if len(msg.Devices) != 2 || msg.Devices[1].Name != "Joy-Con (R) aa:02" {
		t.Errorf("unexpected devices %+v", msg.Devices)
	}
	if !msg.Scanning || msg.Timestamp == 0 {
		t.Errorf("unexpected message %+v", msg)
	}
}
