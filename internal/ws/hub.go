package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quantfolio/portfolio-engine/pkg/models"
	"github.com/quantfolio/portfolio-engine/pkg/utils/logger"
)

// Hub maintains the set of active clients and fans risk snapshots out to
// them. Clients subscribe to portfolio IDs; unsubscribed clients receive
// nothing but control frames.
type Hub struct {
	clients       map[*Client]bool
	register      chan *Client
	unregister    chan *Client
	snapshots     chan *models.RiskSnapshot
	subscriptions map[string]map[*Client]bool // portfolio ID -> clients
	onClientCount func(int)
	log           *logger.Logger
	mu            sync.RWMutex
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	send          chan []byte
	id            string
	subscriptions map[string]bool // portfolio IDs this client watches
	mu            sync.RWMutex

	// sendMu serializes writes to send against its close, so a late
	// write from the read pump cannot hit a closed channel.
	sendMu sync.Mutex
	closed bool
}

// Message is the envelope for every frame sent to a client
type Message struct {
	Type        string      `json:"type"`
	PortfolioID string      `json:"portfolio_id,omitempty"`
	Data        interface{} `json:"data,omitempty"`
	Error       string      `json:"error,omitempty"`
	ID          string      `json:"id,omitempty"`
}

// SubscriptionMessage is the request frame accepted from clients
type SubscriptionMessage struct {
	Type       string   `json:"type"`
	Portfolios []string `json:"portfolios"`
	ID         string   `json:"id,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// In production, implement proper origin checking
		return true
	},
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// NewHub creates a new snapshot hub. onClientCount, if non-nil, is called
// with the client count after each register/unregister.
func NewHub(onClientCount func(int)) *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		snapshots:     make(chan *models.RiskSnapshot, 64),
		subscriptions: make(map[string]map[*Client]bool),
		onClientCount: onClientCount,
		log:           logger.GetLogger("ws.hub"),
	}
}

// Run drives the hub until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("Starting websocket hub")

	for {
		select {
		case <-ctx.Done():
			h.log.Info("Websocket hub shutting down")
			return

		case client := <-h.register:
			h.clients[client] = true
			h.reportClientCount()
			h.log.Infof("Client %s registered", client.id)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.log.Infof("Client %s unregistered", client.id)
			}

		case snapshot := <-h.snapshots:
			h.deliver(snapshot)
		}
	}
}

// BroadcastSnapshot queues a risk snapshot for delivery to subscribers.
// Drops the snapshot when the hub is saturated; snapshots are periodic,
// so the next one supersedes anything lost.
func (h *Hub) BroadcastSnapshot(snapshot *models.RiskSnapshot) {
	select {
	case h.snapshots <- snapshot:
	default:
		h.log.Warnf("Snapshot queue full, dropping snapshot for %s", snapshot.PortfolioID)
	}
}

// HandleWebSocket upgrades the connection and starts the client pumps.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("Websocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:           h,
		conn:          conn,
		send:          make(chan []byte, 64),
		id:            fmt.Sprintf("client_%d", time.Now().UnixNano()),
		subscriptions: make(map[string]bool),
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

func (h *Hub) reportClientCount() {
	if h.onClientCount != nil {
		h.onClientCount(len(h.clients))
	}
}

// deliver sends the snapshot to every client subscribed to its portfolio.
func (h *Hub) deliver(snapshot *models.RiskSnapshot) {
	h.mu.RLock()
	subscribers := make([]*Client, 0)
	for client := range h.subscriptions[snapshot.PortfolioID] {
		subscribers = append(subscribers, client)
	}
	h.mu.RUnlock()

	if len(subscribers) == 0 {
		return
	}

	data, err := json.Marshal(Message{
		Type:        "risk_snapshot",
		PortfolioID: snapshot.PortfolioID,
		Data:        snapshot,
	})
	if err != nil {
		h.log.Errorf("Failed to marshal snapshot: %v", err)
		return
	}

	for _, client := range subscribers {
		if !client.trySend(data) {
			// Slow consumer, disconnect it.
			h.log.Warnf("Client %s cannot keep up, dropping", client.id)
			h.drop(client)
		}
	}
}

// drop removes the client from the hub and all subscription lists and
// closes its send channel. Safe to call more than once; later sends to
// the client become no-ops.
func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	h.removeClientSubscriptions(client)
	client.closeSend()
	h.reportClientCount()
}

func (h *Hub) removeClientSubscriptions(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.mu.RLock()
	for id := range client.subscriptions {
		if clients, exists := h.subscriptions[id]; exists {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.subscriptions, id)
			}
		}
	}
	client.mu.RUnlock()
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Errorf("Websocket error: %v", err)
			}
			break
		}
		c.handleMessage(data)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var msg SubscriptionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("Invalid message format")
		return
	}

	switch msg.Type {
	case "subscribe":
		c.handleSubscription(msg)
	case "unsubscribe":
		c.handleUnsubscription(msg)
	case "ping":
		c.sendMessage(Message{Type: "pong", ID: msg.ID})
	default:
		c.sendError("Unknown message type")
	}
}

func (c *Client) handleSubscription(msg SubscriptionMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range msg.Portfolios {
		c.subscriptions[id] = true

		c.hub.mu.Lock()
		if c.hub.subscriptions[id] == nil {
			c.hub.subscriptions[id] = make(map[*Client]bool)
		}
		c.hub.subscriptions[id][c] = true
		c.hub.mu.Unlock()
	}

	c.sendMessage(Message{
		Type: "subscription_confirmed",
		Data: map[string]interface{}{"portfolios": msg.Portfolios},
		ID:   msg.ID,
	})
}

func (c *Client) handleUnsubscription(msg SubscriptionMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range msg.Portfolios {
		delete(c.subscriptions, id)

		c.hub.mu.Lock()
		if clients, exists := c.hub.subscriptions[id]; exists {
			delete(clients, c)
			if len(clients) == 0 {
				delete(c.hub.subscriptions, id)
			}
		}
		c.hub.mu.Unlock()
	}

	c.sendMessage(Message{
		Type: "unsubscription_confirmed",
		Data: map[string]interface{}{"portfolios": msg.Portfolios},
		ID:   msg.ID,
	})
}

// trySend queues data for the write pump. Reports false when the client
// is closed or its buffer is full.
func (c *Client) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) sendMessage(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.log.Errorf("Failed to marshal message: %v", err)
		return
	}
	c.trySend(data)
}

func (c *Client) sendError(errorMsg string) {
	c.sendMessage(Message{Type: "error", Error: errorMsg})
}
