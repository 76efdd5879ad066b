package websocket

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mocha-tree/investor-portal/investor-portal-backend/internal/notifications"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 54 * time.Second
	sendBufferSize = 64
)

// VerifyToken resolves a session token to a wallet address.
type VerifyToken func(token string) (common.Address, error)

// Manager handles WebSocket connections and routes attempt status updates
// to the investor that owns them.
type Manager struct {
	connections map[string]*Connection
	mu          sync.RWMutex
	hub         *Hub
	upgrader    websocket.Upgrader
	verify      VerifyToken
	logger      *zap.Logger
}

// Connection represents one investor's WebSocket client
type Connection struct {
	ID       string
	Investor string
	Conn     *websocket.Conn
	Send     chan notifications.Message
}

// Hub manages registration and message fan-out
type Hub struct {
	connections map[*Connection]bool
	broadcast   chan notifications.Message
	register    chan *Connection
	unregister  chan *Connection
	stop        chan struct{}
}

// NewManager creates a new WebSocket manager
func NewManager(verify VerifyToken, logger *zap.Logger) *Manager {
	hub := &Hub{
		connections: make(map[*Connection]bool),
		broadcast:   make(chan notifications.Message, 256),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		stop:        make(chan struct{}),
	}

	go hub.run()

	return &Manager{
		connections: make(map[string]*Connection),
		hub:         hub,
		verify:      verify,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// In production, implement proper origin checking
				return true
			},
		},
	}
}

// HandleConnection upgrades the request and binds the connection to the
// session's wallet address (token passed as a query parameter, since
// browsers cannot set headers on WebSocket upgrades).
func (m *Manager) HandleConnection(w http.ResponseWriter, r *http.Request) (*Connection, error) {
	investor, err := m.verify(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return nil, fmt.Errorf("websocket auth failed: %w", err)
	}

	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:       uuid.New().String(),
		Investor: investor.Hex(),
		Conn:     conn,
		Send:     make(chan notifications.Message, sendBufferSize),
	}

	m.hub.register <- connection

	m.mu.Lock()
	m.connections[connection.ID] = connection
	m.mu.Unlock()

	go m.readPump(connection)
	go m.writePump(connection)

	return connection, nil
}

// SendToInvestor queues a message for every connection the investor has
// open. Slow consumers are skipped rather than blocking the sender.
func (m *Manager) SendToInvestor(investor string, msg notifications.Message) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, conn := range m.connections {
		if conn.Investor != investor {
			continue
		}
		select {
		case conn.Send <- msg:
		default:
			m.logger.Warn("Dropping message for slow websocket consumer",
				zap.String("connection_id", conn.ID),
				zap.String("investor", investor))
		}
	}
}

// Broadcast queues a message for every connection.
func (m *Manager) Broadcast(msg notifications.Message) {
	m.hub.broadcast <- msg
}

// Close shuts the hub down.
func (m *Manager) Close() {
	close(m.hub.stop)
}

// readPump drains client frames to keep pong handling alive; the portal
// pushes state, clients send nothing meaningful.
func (m *Manager) readPump(conn *Connection) {
	defer func() {
		// After Close the hub no longer drains unregister.
		select {
		case m.hub.unregister <- conn:
		case <-m.hub.stop:
		}
		m.mu.Lock()
		delete(m.connections, conn.ID)
		m.mu.Unlock()
		conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(512)
	conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.logger.Debug("Websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
	}
}

// writePump pumps queued messages to the client and keeps the connection
// alive with pings.
func (m *Manager) writePump(conn *Connection) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.Conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.connections[conn] = true
		case conn := <-h.unregister:
			if _, ok := h.connections[conn]; ok {
				delete(h.connections, conn)
				close(conn.Send)
			}
		case msg := <-h.broadcast:
			for conn := range h.connections {
				select {
				case conn.Send <- msg:
				default:
				}
			}
		case <-h.stop:
			for conn := range h.connections {
				close(conn.Send)
			}
			return
		}
	}
}
