package echo

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConnectionInfo tracks information about an accepted connection
type ConnectionInfo struct {
	ID          string    `json:"id"`
	RemoteAddr  string    `json:"remoteAddr"`
	StartTime   time.Time `json:"startTime"`
	LastSeen    time.Time `json:"lastSeen"`
	BytesEchoed int64     `json:"bytesEchoed"`
}

// ConnectionTracker tracks live connections. Every handler only ever
// touches the entry it created.
type ConnectionTracker struct {
	mu          sync.RWMutex
	connections map[string]*ConnectionInfo
}

// NewConnectionTracker creates a new connection tracker
func NewConnectionTracker() *ConnectionTracker {
	return &ConnectionTracker{
		connections: make(map[string]*ConnectionInfo),
	}
}

// NewConnectionID returns a fresh random connection id
func NewConnectionID() string {
	return uuid.NewString()
}

// Add adds a connection to the tracker
func (ct *ConnectionTracker) Add(id, remoteAddr string) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	now := time.Now()
	ct.connections[id] = &ConnectionInfo{
		ID:         id,
		RemoteAddr: remoteAddr,
		StartTime:  now,
		LastSeen:   now,
	}
}

// Remove removes a connection from the tracker
func (ct *ConnectionTracker) Remove(id string) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	delete(ct.connections, id)
}

// Update records n echoed bytes and bumps the last seen time
func (ct *ConnectionTracker) Update(id string, n int) {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	if conn, exists := ct.connections[id]; exists {
		conn.LastSeen = time.Now()
		conn.BytesEchoed += int64(n)
	}
}

// Get retrieves a copy of the connection info
func (ct *ConnectionTracker) Get(id string) (ConnectionInfo, bool) {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	conn, exists := ct.connections[id]
	if !exists {
		return ConnectionInfo{}, false
	}
	return *conn, true
}

// List returns copies of all live connections, oldest first
func (ct *ConnectionTracker) List() []ConnectionInfo {
	ct.mu.RLock()
	conns := make([]ConnectionInfo, 0, len(ct.connections))
	for _, conn := range ct.connections {
		conns = append(conns, *conn)
	}
	ct.mu.RUnlock()

	sort.Slice(conns, func(i, j int) bool {
		return conns[i].StartTime.Before(conns[j].StartTime)
	})
	return conns
}

// Count returns the number of live connections
func (ct *ConnectionTracker) Count() int {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return len(ct.connections)
}
