package echo

import (
	"sync/atomic"
)

// Metrics holds the server counters. All fields are updated atomically.
type Metrics struct {
	ActiveConnections   int64
	AcceptedConnections int64
	RejectedConnections int64
	AcceptErrors        int64
	HandlerErrors       int64
	BytesEchoed         int64
}

// MetricsSnapshot is a point in time copy of Metrics
type MetricsSnapshot struct {
	ActiveConnections   int64 `json:"activeConnections"`
	AcceptedConnections int64 `json:"acceptedConnections"`
	RejectedConnections int64 `json:"rejectedConnections"`
	AcceptErrors        int64 `json:"acceptErrors"`
	HandlerErrors       int64 `json:"handlerErrors"`
	BytesEchoed         int64 `json:"bytesEchoed"`
}

func (m *Metrics) IncrementActive() {
	atomic.AddInt64(&m.ActiveConnections, 1)
}

func (m *Metrics) DecrementActive() {
	atomic.AddInt64(&m.ActiveConnections, -1)
}

func (m *Metrics) RecordAccepted() {
	atomic.AddInt64(&m.AcceptedConnections, 1)
}

func (m *Metrics) RecordRejected() {
	atomic.AddInt64(&m.RejectedConnections, 1)
}

func (m *Metrics) RecordAcceptError() {
	atomic.AddInt64(&m.AcceptErrors, 1)
}

func (m *Metrics) RecordHandlerError() {
	atomic.AddInt64(&m.HandlerErrors, 1)
}

func (m *Metrics) RecordBytes(n int) {
	atomic.AddInt64(&m.BytesEchoed, int64(n))
}

// Snapshot loads every counter
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		ActiveConnections:   atomic.LoadInt64(&m.ActiveConnections),
		AcceptedConnections: atomic.LoadInt64(&m.AcceptedConnections),
		RejectedConnections: atomic.LoadInt64(&m.RejectedConnections),
		AcceptErrors:        atomic.LoadInt64(&m.AcceptErrors),
		HandlerErrors:       atomic.LoadInt64(&m.HandlerErrors),
		BytesEchoed:         atomic.LoadInt64(&m.BytesEchoed),
	}
}
