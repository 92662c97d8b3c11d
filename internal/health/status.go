// Package health holds the process-wide status context shared by the listener and executors.
package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status tracks connection and execution health. It is created once by the
// hosting command and passed to each component. A nil *Status records nothing.
type Status struct {
	mu  sync.Mutex
	now func() time.Time

	startedAt         time.Time
	connected         bool
	reconnectAttempts int
	fatal             string
	lastEventAt       time.Time
	lastEventProtocol string
	executions        map[string]*executorCounts
}

type executorCounts struct {
	Confirmed int    `json:"confirmed"`
	Failed    int    `json:"failed"`
	LastError string `json:"last_error,omitempty"`
}

// Snapshot is the JSON view served on /health.
type Snapshot struct {
	Status            string                    `json:"status"`
	Uptime            string                    `json:"uptime"`
	Connected         bool                      `json:"connected"`
	ReconnectAttempts int                       `json:"reconnect_attempts"`
	Fatal             string                    `json:"fatal,omitempty"`
	LastEventAt       *time.Time                `json:"last_event_at,omitempty"`
	LastEventProtocol string                    `json:"last_event_protocol,omitempty"`
	Executors         map[string]executorCounts `json:"executors,omitempty"`
}

// NewStatus creates a Status.
func NewStatus() *Status {
	return newStatus(time.Now)
}

func newStatus(now func() time.Time) *Status {
	return &Status{
		now:        now,
		startedAt:  now(),
		executions: make(map[string]*executorCounts),
	}
}

// SetConnected records the connection state and current attempt count.
func (s *Status) SetConnected(connected bool, attempts int) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = connected
	s.reconnectAttempts = attempts
}

// SetFatal records an unrecoverable error.
func (s *Status) SetFatal(err error) {
	if s == nil || err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.fatal = err.Error()
}

// ObserveEvent records the arrival of a published event.
func (s *Status) ObserveEvent(protocol string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastEventAt = s.now()
	s.lastEventProtocol = protocol
}

// ObserveExecution records one executor result.
func (s *Status) ObserveExecution(executor string, confirmed bool, err error) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.executions[executor]
	if !ok {
		c = &executorCounts{}
		s.executions[executor] = c
	}
	if confirmed {
		c.Confirmed++
		return
	}
	c.Failed++
	if err != nil {
		c.LastError = err.Error()
	}
}

// Snapshot returns a copy of the current state.
func (s *Status) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{Status: "unknown"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Status:            "ok",
		Uptime:            s.now().Sub(s.startedAt).Truncate(time.Second).String(),
		Connected:         s.connected,
		ReconnectAttempts: s.reconnectAttempts,
		Fatal:             s.fatal,
		LastEventProtocol: s.lastEventProtocol,
	}
	switch {
	case s.fatal != "":
		snap.Status = "fatal"
	case !s.connected:
		snap.Status = "degraded"
	}
	if !s.lastEventAt.IsZero() {
		t := s.lastEventAt
		snap.LastEventAt = &t
	}
	if len(s.executions) > 0 {
		snap.Executors = make(map[string]executorCounts, len(s.executions))
		for name, c := range s.executions {
			snap.Executors[name] = *c
		}
	}
	return snap
}

// ServeHTTP writes the snapshot as JSON. Fatal state answers 503.
func (s *Status) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap := s.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	if snap.Status == "fatal" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(snap)
}
