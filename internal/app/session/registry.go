// Package session owns the set of live call sessions.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tkc-cmd/rxvoice/internal/domain"
	"github.com/tkc-cmd/rxvoice/internal/observability"
)

var ErrNotFound = errors.New("session not found")
var ErrExists = errors.New("session already exists")

// EvictFunc is called (outside the registry lock) for every session the
// sweeper removes, so the transport can close the connection.
type EvictFunc func(id domain.SessionID)

// Registry is the concurrency-safe container of live sessions. The lock
// only guards registry bookkeeping; session-internal state is mutated by
// the orchestrator under the session's own lock, not this one.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*domain.Session

	timeout time.Duration
	sweep   time.Duration
	onEvict EvictFunc
	now     func() time.Time
}

func NewRegistry(timeout, sweepInterval time.Duration, onEvict EvictFunc) *Registry {
	return &Registry{
		sessions: make(map[domain.SessionID]*domain.Session),
		timeout:  timeout,
		sweep:    sweepInterval,
		onEvict:  onEvict,
		now:      time.Now,
	}
}

// Create registers a new session. An empty id gets a generated one.
func (r *Registry) Create(id domain.SessionID) (*domain.Session, error) {
	if id == "" {
		id = domain.SessionID(uuid.NewString())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; exists {
		return nil, ErrExists
	}

	sess := domain.NewSession(id, r.now())
	r.sessions[id] = sess
	return sess, nil
}

func (r *Registry) Get(id domain.SessionID) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Touch updates last-activity so the sweeper leaves the session alone.
func (r *Registry) Touch(id domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok := r.sessions[id]; ok {
		sess.LastActivity = r.now()
	}
}

func (r *Registry) Remove(id domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// SweepOnce evicts every session idle longer than the timeout and reports
// how many were removed. Evict callbacks run after the lock is released.
func (r *Registry) SweepOnce() int {
	now := r.now()

	r.mu.Lock()
	var evicted []domain.SessionID
	for id, sess := range r.sessions {
		if now.Sub(sess.LastActivity) > r.timeout {
			delete(r.sessions, id)
			evicted = append(evicted, id)
		}
	}
	r.mu.Unlock()

	for _, id := range evicted {
		if r.onEvict != nil {
			r.onEvict(id)
		}
	}
	return len(evicted)
}

// RunSweeper blocks, sweeping on the configured interval until ctx ends.
func (r *Registry) RunSweeper(ctx context.Context) {
	log := observability.LoggerFromContext(ctx)

	ticker := time.NewTicker(r.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.SweepOnce(); n > 0 {
				log.Info("evicted idle sessions", "count", n)
			}
		}
	}
}
