//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	wsmsg "github.com/gokatarajesh/code-battle/pkg/http/ws"
)

type guestInfo struct {
	ID          string
	DisplayName string
	AccessToken string
}

type battleBody struct {
	ID       string `json:"id"`
	RoomCode string `json:"roomCode"`
	Status   string `json:"status"`
	Winner   string `json:"winner"`

	CreatorScore    int `json:"creatorScore"`
	ChallengerScore int `json:"challengerScore"`
}

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func baseURL() string { return envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080") }

func wsURL() string { return envOrDefault("INTEGRATION_WS_URL", "ws://localhost:8080/ws/battles") }

func createGuest(t *testing.T, displayName string) guestInfo {
	t.Helper()

	name := fmt.Sprintf("%s-%d", displayName, time.Now().UnixNano()%100000)
	resp := makeAuthenticatedRequest(t, http.MethodPost, baseURL()+"/auth/guest", "", map[string]string{"displayName": name})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected guest response status: %d", resp.StatusCode)
	}

	var out struct {
		UserID      string `json:"userId"`
		DisplayName string `json:"displayName"`
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode guest response failed: %v", err)
	}
	if out.AccessToken == "" {
		t.Fatalf("empty access token in guest response")
	}
	return guestInfo{ID: out.UserID, DisplayName: out.DisplayName, AccessToken: out.AccessToken}
}

func makeAuthenticatedRequest(t *testing.T, method, target, token string, payload interface{}) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, target, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, target, err)
	}
	return resp
}

// decodeBattle expects status and returns the {battle} envelope.
func decodeBattle(t *testing.T, resp *http.Response, status int) battleBody {
	t.Helper()
	defer resp.Body.Close()

	if resp.StatusCode != status {
		var errResp map[string]interface{}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		t.Fatalf("expected %d, got %d, error: %v", status, resp.StatusCode, errResp)
	}
	var out struct {
		Battle battleBody `json:"battle"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode battle response failed: %v", err)
	}
	return out.Battle
}

func createBattle(t *testing.T, token string) battleBody {
	t.Helper()
	payload := map[string]interface{}{
		"battleName":      "Integration duel",
		"description":     "created by the integration suite",
		"questionsNumber": 3,
		"difficulty":      "easy",
		"mode":            "time",
	}
	resp := makeAuthenticatedRequest(t, http.MethodPost, baseURL()+"/battle/create", token, payload)
	return decodeBattle(t, resp, http.StatusCreated)
}

func dialBattleWS(t *testing.T, token string) *websocket.Conn {
	t.Helper()

	u, err := url.Parse(wsURL())
	if err != nil {
		t.Fatalf("invalid WS url: %v", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	return conn
}

func sendMessage(t *testing.T, conn *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()

	msg, err := wsmsg.NewMessage(msgType, payload)
	if err != nil {
		t.Fatalf("encode %s: %v", msgType, err)
	}
	conn.SetWriteDeadline(time.Now().Add(3 * time.Second))
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("failed to send %s: %v", msgType, err)
	}
}

func waitForMessage(t *testing.T, conn *websocket.Conn, msgType string, timeout time.Duration, dst interface{}) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		var msg wsmsg.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read ws message while waiting for %s: %v", msgType, err)
		}
		if msg.Type != msgType {
			continue
		}
		if dst != nil {
			if err := json.Unmarshal(msg.Payload, dst); err != nil {
				t.Fatalf("decode %s payload: %v", msgType, err)
			}
		}
		return
	}
	t.Fatalf("timeout waiting for %s", msgType)
}
