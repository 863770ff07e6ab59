package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

var testSecret = []byte("hub-test-secret")

func signedToken(t *testing.T, role string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "user-1",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func newHubServer(t *testing.T, origins ...string) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub(origins...)
	go hub.Run()

	router := gin.New()
	router.GET("/ws", func(c *gin.Context) { ServeWs(hub, c, testSecret) })
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return hub, srv
}

func wsURL(srv *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
}

func TestServeWsRejectsMissingToken(t *testing.T) {
	_, srv := newHubServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func TestServeWsRejectsUnknownRole(t *testing.T) {
	_, srv := newHubServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, signedToken(t, "guest")), nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %+v", resp)
	}
}

func TestPublishReachesClient(t *testing.T) {
	hub, srv := newHubServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, signedToken(t, "store_handler")), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Publish(EventStockUpdated, map[string]interface{}{"product_id": "p1", "stock": 4})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg struct {
		Event string                 `json:"event"`
		Data  map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Event != EventStockUpdated || msg.Data["product_id"] != "p1" {
		t.Fatalf("unexpected message %s", raw)
	}
}

func TestServeWsChecksOrigin(t *testing.T) {
	_, srv := newHubServer(t, "http://counter.local")
	token := signedToken(t, "admin")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, token), http.Header{"Origin": {"http://evil.local"}})
	if err == nil {
		t.Fatal("expected foreign origin to be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %+v", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), http.Header{"Origin": {"http://counter.local"}})
	if err != nil {
		t.Fatalf("dial from allowed origin: %v", err)
	}
	conn.Close()
}
