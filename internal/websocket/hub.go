package websocket

import (
	"encoding/json"
	"sync"

	"github.com/fajargold/fajargold-backend/internal/app/model"
	"github.com/fajargold/fajargold-backend/pkg/goldprice"
	"github.com/fajargold/fajargold-backend/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// inbound messages per second per client
	maxMessagesPerSecond = 10

	sendBufferSize = 256

	MessageTypePriceUpdate = "price_update"
	MessageTypeSubscribe   = "subscribe"
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
)

// ClientMessage message received from a client
type ClientMessage struct {
	Type     string   `json:"type"`               // subscribe, ping
	Purities []string `json:"purities,omitempty"` // empty subscribes to all
}

// PriceUpdateMessage pushed to clients after each committed update
type PriceUpdateMessage struct {
	Type    string                   `json:"type"`
	Price   *model.GoldPriceResponse `json:"price"`
	Changes []goldprice.ChangeRecord `json:"changes"`
}

// Client one websocket subscriber
type Client struct {
	ID   string
	Hub  *Hub
	Conn *Conn
	Send chan []byte

	mu       sync.RWMutex
	purities map[goldprice.Purity]bool
	limiter  *rate.Limiter
}

// NewClient creates a client with a buffered send queue
func NewClient(hub *Hub, conn *Conn) *Client {
	return &Client{
		ID:       uuid.NewString(),
		Hub:      hub,
		Conn:     conn,
		Send:     make(chan []byte, sendBufferSize),
		purities: make(map[goldprice.Purity]bool),
		limiter:  rate.NewLimiter(maxMessagesPerSecond, maxMessagesPerSecond),
	}
}

// wants reports whether the client subscribed to p. No subscription means all.
func (c *Client) wants(p goldprice.Purity) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.purities) == 0 || c.purities[p]
}

func (c *Client) subscribe(purities []goldprice.Purity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purities = make(map[goldprice.Purity]bool, len(purities))
	for _, p := range purities {
		c.purities[p] = true
	}
}

// Hub fans price updates out to connected clients
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *PriceUpdateMessage
	done       chan struct{}
	stopOnce   sync.Once

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *PriceUpdateMessage, 64),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until Stop is called
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			logger.Info("WebSocket client registered", logger.Fields{
				"client_id": client.ID,
				"clients":   total,
			})

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			h.deliver(msg)

		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop shuts the hub down and closes every client queue
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
	}
	remaining := len(h.clients)
	h.mu.Unlock()

	logger.Info("WebSocket client unregistered", logger.Fields{
		"client_id": client.ID,
		"clients":   remaining,
	})
}

func (h *Hub) deliver(msg *PriceUpdateMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		filtered := *msg
		filtered.Changes = make([]goldprice.ChangeRecord, 0, len(msg.Changes))
		for _, rec := range msg.Changes {
			if client.wants(rec.Purity) {
				filtered.Changes = append(filtered.Changes, rec)
			}
		}

		data, err := json.Marshal(&filtered)
		if err != nil {
			logger.Error("Failed to marshal price update", err)
			continue
		}

		select {
		case client.Send <- data:
		default:
			go h.Unregister(client)
			logger.Warn("Client send buffer full, disconnecting", logger.Fields{"client_id": client.ID})
		}
	}
}

// NotifyPriceUpdate queues an update for every client without blocking the caller
func (h *Hub) NotifyPriceUpdate(price *model.GoldPriceResponse, changes []goldprice.ChangeRecord) {
	msg := &PriceUpdateMessage{Type: MessageTypePriceUpdate, Price: price, Changes: changes}
	select {
	case h.broadcast <- msg:
	default:
		logger.Warn("Broadcast channel full, price update dropped")
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleClientMessage applies a message received from client
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	if !client.limiter.Allow() {
		logger.Warn("Rate limit exceeded", logger.Fields{"client_id": client.ID})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", logger.Fields{
			"client_id": client.ID,
			"error":     err.Error(),
		})
		return
	}

	switch msg.Type {
	case MessageTypeSubscribe:
		purities := make([]goldprice.Purity, 0, len(msg.Purities))
		for _, raw := range msg.Purities {
			p, err := goldprice.ParsePurity(raw)
			if err != nil {
				logger.Warn("Ignoring unknown purity subscription", logger.Fields{"client_id": client.ID, "purity": raw})
				continue
			}
			purities = append(purities, p)
		}
		client.subscribe(purities)

	case MessageTypePing:
		data, _ := json.Marshal(ClientMessage{Type: MessageTypePong})
		h.mu.RLock()
		if h.clients[client] {
			select {
			case client.Send <- data:
			default:
			}
		}
		h.mu.RUnlock()
	}
}
