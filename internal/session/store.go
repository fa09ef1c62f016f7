package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Store persists sessions between requests.
type Store interface {
	// Get returns the live session with the given id, or nil if it is
	// unknown or expired.
	Get(ctx context.Context, id string) (*Session, error)

	// Save registers the session and extends its expiry.
	Save(ctx context.Context, s *Session) error

	// Delete forgets a session.
	Delete(ctx context.Context, id string) error

	// TTL is the idle lifetime of a session.
	TTL() time.Duration
}

type entry struct {
	session   *Session
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory and sweeps expired ones.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]entry
	ttl      time.Duration
	now      func() time.Time
	logger   zerolog.Logger

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewMemoryStore creates a store and starts its sweeper.
func NewMemoryStore(ttl time.Duration, logger zerolog.Logger) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]entry),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger.With().Str("component", "session_store").Logger(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.sweepLoop(sweepInterval(ttl))
	return s
}

func sweepInterval(ttl time.Duration) time.Duration {
	if ttl > 0 && ttl < time.Minute {
		return ttl
	}
	return time.Minute
}

// TTL returns the idle lifetime.
func (s *MemoryStore) TTL() time.Duration {
	return s.ttl
}

// Get returns a live session or nil.
func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.sessions, id)
		return nil, nil
	}
	return e.session, nil
}

// Save stores the session and pushes its expiry forward.
func (s *MemoryStore) Save(_ context.Context, sess *Session) error {
	expiresAt := s.now().Add(s.ttl)
	sess.touch(expiresAt)

	s.mu.Lock()
	s.sessions[sess.ID()] = entry{session: sess, expiresAt: expiresAt}
	s.mu.Unlock()
	return nil
}

// Delete removes a session.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		if !now.Before(e.expiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) sweepLoop(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug().Int("removed", n).Msg("expired sessions swept")
			}
		}
	}
}

// Close stops the sweeper.
func (s *MemoryStore) Close() error {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
	})
	return nil
}
