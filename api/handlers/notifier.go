package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kushalk47/aarogya-api/api"
	"github.com/kushalk47/aarogya-api/config"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const defaultNotifyWriteTimeout = 5 * time.Second

// Notifier keeps the doctors' notification websockets. A doctor may have
// several tabs open, so each user maps to a set of connections.
type Notifier struct {
	// WriteTimeout bounds each notification write; a socket that cannot take
	// the event in time is dropped
	WriteTimeout time.Duration

	mu      sync.Mutex
	clients map[string]map[*websocket.Conn]*sync.Mutex
}

// NewNotifier returns an empty notifier
func NewNotifier() *Notifier {
	return &Notifier{
		WriteTimeout: defaultNotifyWriteTimeout,
		clients:      map[string]map[*websocket.Conn]*sync.Mutex{},
	}
}

// ServeHTTP upgrades the authenticated doctor's request and holds the
// connection until the client goes away
func (n *Notifier) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if !p.IsDoctor() {
		config.ErrorStatus("notifications are only available to doctors", http.StatusForbidden, w, api.ErrForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("websocket upgrade failed", "error", err)
		return
	}
	n.register(p.ID, conn)
	zap.S().Infow("doctor connected to notifications", "doctor_id", p.ID)

	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}
	n.unregister(p.ID, conn)
	conn.Close()
	zap.S().Infow("doctor disconnected from notifications", "doctor_id", p.ID)
}

// Notify sends event to every connection of userID. Having no connection is
// not an error.
func (n *Notifier) Notify(userID string, event interface{}) {
	n.mu.Lock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(n.clients[userID]))
	for c, l := range n.clients[userID] {
		conns[c] = l
	}
	n.mu.Unlock()

	timeout := n.WriteTimeout
	if timeout <= 0 {
		timeout = defaultNotifyWriteTimeout
	}
	for conn, lock := range conns {
		lock.Lock()
		err := conn.SetWriteDeadline(time.Now().Add(timeout))
		if err == nil {
			err = conn.WriteJSON(event)
		}
		lock.Unlock()
		if err != nil {
			zap.S().Warnw("failed to send notification", "user_id", userID, "error", err)
			n.unregister(userID, conn)
			conn.Close()
		}
	}
}

// Connections returns how many sockets userID holds
func (n *Notifier) Connections(userID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.clients[userID])
}

func (n *Notifier) register(userID string, conn *websocket.Conn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.clients[userID] == nil {
		n.clients[userID] = map[*websocket.Conn]*sync.Mutex{}
	}
	n.clients[userID][conn] = &sync.Mutex{}
}

func (n *Notifier) unregister(userID string, conn *websocket.Conn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.clients[userID], conn)
	if len(n.clients[userID]) == 0 {
		delete(n.clients, userID)
	}
}
