package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"storefront-erp/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

const (
	sendBuffer      = 256
	broadcastBuffer = 64
	writeWait       = 10 * time.Second
)

// Event names pushed to connected terminals
const (
	EventStockUpdated        = "stock.updated"
	EventInvoiceCreated      = "invoice.created"
	EventInvoiceStatusUpdate = "invoice.status_updated"
	EventScanAck             = "scan.ack"
)

// Message is the JSON envelope of every pushed event
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
	At    time.Time   `json:"at"`
}

// Client is one signed-in terminal (counter, dashboard, stock screen)
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID string
	Role   string
}

// Hub fans stock, invoice and scan events out to every connected terminal
type Hub struct {
	clients    map[*Client]bool
	Broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
	upgrader   websocket.Upgrader
}

// NewHub builds a hub that accepts upgrades from the given origins.
// An empty list or "*" accepts any origin.
func NewHub(allowedOrigins ...string) *Hub {
	h := &Hub{
		Broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// non-browser clients send no Origin
		return origin == "" || len(set) == 0 || set[origin]
	}
}

// Run is the dispatch loop. It owns client registration and fan-out.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("WebSocket client connected: user=%s role=%s", client.UserID, client.Role)
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				log.Printf("WebSocket client disconnected: user=%s", client.UserID)
			}
			h.mu.Unlock()
		case message := <-h.Broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// slow terminal, drop it rather than stall the counter
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish broadcasts an event without blocking the caller. Events are dropped
// when the hub loop is not keeping up.
func (h *Hub) Publish(event string, data interface{}) {
	payload, err := json.Marshal(Message{Event: event, Data: data, At: time.Now().UTC()})
	if err != nil {
		log.Printf("websocket: encode %s: %v", event, err)
		return
	}
	select {
	case h.Broadcast <- payload:
	default:
		log.Printf("websocket: hub busy, dropped %s", event)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for message := range c.Send {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		w, err := c.Conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		_, _ = w.Write(message)

		// one event per line when several are queued
		n := len(c.Send)
		for i := 0; i < n; i++ {
			_, _ = w.Write([]byte{'\n'})
			_, _ = w.Write(<-c.Send)
		}

		if err := w.Close(); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump only drains the socket; terminals never push events upstream.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		_ = c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error (user=%s): %v", c.UserID, err)
			}
			return
		}
	}
}

// ServeWs authenticates the ?token= JWT and upgrades the request
func ServeWs(hub *Hub, c *gin.Context, secret []byte) {
	// browsers cannot set headers on websocket upgrades, so the token rides in the query
	tokenString := c.Query("token")
	if tokenString == "" {
		log.Println("WebSocket connection rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		log.Println("WebSocket connection rejected: invalid token:", err)
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	userID, _ := claims.GetSubject()
	role, _ := claims["role"].(string)
	if !model.ValidRole(role) {
		log.Printf("WebSocket connection rejected: role %q", role)
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	conn, err := hub.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade failed:", err)
		return
	}
	client := &Client{Hub: hub, Conn: conn, Send: make(chan []byte, sendBuffer), UserID: userID, Role: role}
	hub.register <- client

	go client.writePump()
	go client.readPump()
}
