package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"gamecontent-server/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// TopicBatches - общая тема, на неё подписан каждый клиент.
	TopicBatches = "batches"

	MessageTypeBatchProgress = "batch_progress"
	MessageTypeSubscribed    = "subscribed"
	MessageTypeUnsubscribed  = "unsubscribed"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 256
)

// BatchTopic возвращает тему конкретного батча.
func BatchTopic(batchID string) string {
	return "batch:" + batchID
}

// Message - конверт исходящего сообщения.
type Message struct {
	Type    string `json:"type"`
	Topic   string `json:"topic"`
	Payload any    `json:"payload,omitempty"`
}

type command struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

// Client - одно WebSocket соединение и его подписки.
type Client struct {
	ID     uuid.UUID
	conn   *websocket.Conn
	hub    *Hub
	send   chan []byte
	topics map[string]bool // защищено hub.mu
}

var _ service.ProgressReporter = (*Hub)(nil)

// Hub держит подключения и рассылает сообщения по темам.
type Hub struct {
	clients    map[uuid.UUID]*Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

// NewHub создаёт хаб. allowedOrigins - список Origin; "*" разрешает любой.
func NewHub(allowedOrigins []string, logger *zap.Logger) *Hub {
	h := &Hub{
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.Named("WebSocketHub"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

// Run обрабатывает регистрацию клиентов до отмены ctx.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.logger.Debug("Client connected", zap.String("clientID", client.ID.String()))

		case client := <-h.unregister:
			h.remove(client)

		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			h.logger.Info("WebSocket hub stopped")
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.ID]; ok {
		close(client.send)
		delete(h.clients, client.ID)
		h.logger.Debug("Client disconnected", zap.String("clientID", client.ID.String()))
	}
}

// ClientCount возвращает число подключённых клиентов.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS апгрейдит запрос и подписывает клиента на TopicBatches.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader уже ответил клиенту
		h.logger.Warn("Failed to upgrade connection", zap.Error(err))
		return
	}

	client := &Client{
		ID:     uuid.New(),
		conn:   conn,
		hub:    h,
		send:   make(chan []byte, sendBufferSize),
		topics: map[string]bool{TopicBatches: true},
	}
	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// Publish отправляет сообщение всем клиентам, подписанным хотя бы на одну из тем.
// Каждый клиент получает сообщение один раз.
func (h *Hub) Publish(msgType string, topics []string, payload any) {
	if len(topics) == 0 {
		return
	}
	data, err := json.Marshal(Message{Type: msgType, Topic: topics[len(topics)-1], Payload: payload})
	if err != nil {
		h.logger.Error("Failed to marshal websocket message", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if !client.subscribedToAny(topics) {
			continue
		}
		select {
		case client.send <- data:
		default:
			// медленный клиент теряет сообщение, но не тормозит батч
			h.logger.Warn("Client send buffer full, dropping message", zap.String("clientID", client.ID.String()))
		}
	}
}

// ReportProgress рассылает ход батча в темы batches и batch:<id>.
func (h *Hub) ReportProgress(_ context.Context, event service.ProgressEvent) {
	h.Publish(MessageTypeBatchProgress, []string{TopicBatches, BatchTopic(event.BatchID)}, event)
}

func (c *Client) subscribedToAny(topics []string) bool {
	for _, t := range topics {
		if c.topics[t] {
			return true
		}
	}
	return false
}

func (c *Client) setSubscription(topic string, subscribed bool) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if subscribed {
		c.topics[topic] = true
	} else {
		delete(c.topics, topic)
	}
}

// reply кладёт подтверждение в очередь клиента.
func (c *Client) reply(msgType, topic string) {
	data, err := json.Marshal(Message{Type: msgType, Topic: topic})
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c.ID]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// readPump обрабатывает команды подписки от клиента.
func (c *Client) readPump() {
	log := c.hub.logger.With(zap.String("clientID", c.ID.String()))
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}

		var cmd command
		if err := json.Unmarshal(message, &cmd); err != nil || cmd.Topic == "" {
			log.Debug("Ignoring malformed client command", zap.ByteString("message", message))
			continue
		}

		switch cmd.Action {
		case "subscribe":
			c.setSubscription(cmd.Topic, true)
			c.reply(MessageTypeSubscribed, cmd.Topic)
		case "unsubscribe":
			c.setSubscription(cmd.Topic, false)
			c.reply(MessageTypeUnsubscribed, cmd.Topic)
		default:
			log.Debug("Unknown client action", zap.String("action", cmd.Action))
		}
	}
}

// writePump пишет сообщения из очереди и пингует клиента.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
