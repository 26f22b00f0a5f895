package connections

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// TimeoutConfig holds the various timeout settings for WebSocket connections
type TimeoutConfig struct {
	PongWait   time.Duration
	PingPeriod time.Duration
	WriteWait  time.Duration
}

// DefaultTimeouts provides sensible default timeout values
var DefaultTimeouts = TimeoutConfig{
	PongWait:   30 * time.Second,
	PingPeriod: 27 * time.Second, // (PongWait * 9) / 10
	WriteWait:  10 * time.Second,
}

// Manager tracks the live chat connections and which remote thread each one
// serves.
type Manager struct {
	mu       sync.RWMutex
	sessions map[*websocket.Conn]string
	timeouts TimeoutConfig
}

// NewManager creates a new connection manager with the specified timeouts
func NewManager(timeouts TimeoutConfig) *Manager {
	return &Manager{
		sessions: make(map[*websocket.Conn]string),
		timeouts: timeouts,
	}
}

// Add registers a connection together with the thread id it is bound to
func (m *Manager) Add(conn *websocket.Conn, threadID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[conn] = threadID
}

// Remove drops a connection from the registry
func (m *Manager) Remove(conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, conn)
}

// Count returns the current number of active connections
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ThreadID returns the thread a connection serves, if it is registered
func (m *Manager) ThreadID(conn *websocket.Conn) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	threadID, ok := m.sessions[conn]
	return threadID, ok
}

// GetTimeouts returns the current timeout configuration
func (m *Manager) GetTimeouts() TimeoutConfig {
	return m.timeouts
}
