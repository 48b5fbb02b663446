package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/flow"
	"github.com/aretw0/espalier/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, giving the single-writer-per-session
// guarantee the request life cycle requires: the state store itself carries
// no concurrency control, so two requests with the same session identifier
// would otherwise race between load and write-back. Locks are reference
// counted and garbage collected when idle.
type Manager struct {
	store ports.StateStore

	mu    sync.Mutex            // guards the lock map
	locks map[string]*lockEntry // active locks

	locker  ports.DistributedLocker // optional, for multi-replica setups
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL bounds how long a crashed holder can keep a distributed lock.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a session Manager backed by the given state store.
func NewManager(store ports.StateStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: 30 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock executes fn while holding the lock for the session. The lock is
// not reentrant; fn must use Store() for nested store access.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Create allocates a fresh session: a new identifier and an empty state,
// persisted immediately to reserve the ID.
func (m *Manager) Create(ctx context.Context) (*flow.State, error) {
	st := flow.NewState(NewID())
	err := m.WithLock(ctx, st.ID, func(ctx context.Context) error {
		return m.store.Save(ctx, st.ID, st)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	return st, nil
}

// Load retrieves an existing session. A malformed identifier is rejected
// without touching the store.
func (m *Manager) Load(ctx context.Context, sessionID string) (*flow.State, error) {
	if !ValidID(sessionID) {
		return nil, flow.ErrMalformedSessionID
	}
	var st *flow.State
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		st, err = m.store.Load(ctx, sessionID)
		return err
	})
	return st, err
}

// Save persists the session state.
func (m *Manager) Save(ctx context.Context, sessionID string, st *flow.State) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Save(ctx, sessionID, st)
	})
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying state store, for use inside WithLock.
func (m *Manager) Store() ports.StateStore {
	return m.store
}
