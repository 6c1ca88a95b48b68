package api

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sadikovi/pulsar/engine"
	"github.com/sadikovi/pulsar/metrics"
	"github.com/sadikovi/pulsar/utils"
)

// ErrSessionNotFound reports an unknown or expired session id.
var ErrSessionNotFound = errors.New("session not found")

// sessionEntry pairs one engine session with its own mutex. The engine is
// single-threaded; the mutex serializes handler access per session.
type sessionEntry struct {
	mu       sync.Mutex
	sess     *engine.Session
	dataset  string
	lastUsed time.Time
}

// SessionManager keeps live exploration sessions in memory, keyed by uuid.
// Sessions idle past the ttl are evicted by a janitor goroutine.
type SessionManager struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
	ttl     time.Duration
	logger  *utils.Logger
	stop    chan struct{}
	done    chan struct{}
}

// NewSessionManager starts the manager and its janitor. A non-positive ttl
// disables eviction.
func NewSessionManager(ttl time.Duration, logger *utils.Logger) *SessionManager {
	m := &SessionManager{
		entries: make(map[string]*sessionEntry),
		ttl:     ttl,
		logger:  logger,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go m.janitor()
	return m
}

// Put registers a session and returns its id.
func (m *SessionManager) Put(sess *engine.Session, dataset string) string {
	id := uuid.NewString()
	m.mu.Lock()
	m.entries[id] = &sessionEntry{sess: sess, dataset: dataset, lastUsed: time.Now()}
	n := len(m.entries)
	m.mu.Unlock()

	metrics.SessionsStartedTotal.Inc()
	metrics.ActiveSessions.Set(float64(n))
	return id
}

// With runs fn while holding the session's lock and refreshes its idle
// timer. The error is ErrSessionNotFound or whatever fn returns.
func (m *SessionManager) With(id string, fn func(*engine.Session) error) error {
	m.mu.Lock()
	e, ok := m.entries[id]
	if ok {
		e.lastUsed = time.Now()
	}
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.sess)
}

// Dataset reports which dataset a session explores.
func (m *SessionManager) Dataset(id string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return "", false
	}
	return e.dataset, true
}

// Delete removes a session. It reports whether the id was known.
func (m *SessionManager) Delete(id string) bool {
	m.mu.Lock()
	_, ok := m.entries[id]
	delete(m.entries, id)
	n := len(m.entries)
	m.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	return ok
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close stops the janitor and drops all sessions.
func (m *SessionManager) Close() {
	close(m.stop)
	<-m.done

	m.mu.Lock()
	m.entries = make(map[string]*sessionEntry)
	m.mu.Unlock()
	metrics.ActiveSessions.Set(0)
}

func (m *SessionManager) janitor() {
	defer close(m.done)
	if m.ttl <= 0 {
		<-m.stop
		return
	}

	interval := m.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stop:
			return
		}
	}
}

func (m *SessionManager) sweep() {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	var expired []string
	for id, e := range m.entries {
		if e.lastUsed.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(m.entries, id)
	}
	n := len(m.entries)
	m.mu.Unlock()

	if len(expired) > 0 {
		m.logger.Info("[api] Evicted %d idle session(s), %d remaining", len(expired), n)
		metrics.ActiveSessions.Set(float64(n))
	}
}
